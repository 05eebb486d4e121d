package project

type CreateProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

type RenameProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

type SelectProjectRequest struct {
	ProjectID string `json:"projectId" binding:"required"`
}
