package risk

// AnalysisRequest carries the project facts sent to the analysis
// backend.
type AnalysisRequest struct {
	ProjectDescription string `json:"projectDescription" binding:"required"`
	ProjectTimeline    string `json:"projectTimeline"`
	BudgetDetails      string `json:"budgetDetails"`
	LocationInfo       string `json:"locationInfo"`
	ContractTerms      string `json:"contractTerms"`
}

// AnalysisResult is the backend's structured answer.
type AnalysisResult struct {
	IdentifiedRisks       []string `json:"identifiedRisks"`
	MitigationStrategies  []string `json:"mitigationStrategies"`
	OverallRiskAssessment string   `json:"overallRiskAssessment"`
}
