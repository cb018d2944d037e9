package handlers

import "github.com/gin-gonic/gin"

// Routes groups the API handlers
type Routes struct {
	Imports *ImportHandler
	Files   *FileHandler
	Catalog *CatalogHandler
}

// Register mounts every API endpoint on the /api group
func (rt Routes) Register(api *gin.RouterGroup) {
	// Import endpoints
	api.GET("/imports/template", rt.Files.GetTemplate)
	api.POST("/imports", rt.Imports.StartImport)
	api.GET("/imports/:id", rt.Imports.GetSession)
	api.DELETE("/imports/:id", rt.Imports.CloseSession)
	api.GET("/imports/:id/file", rt.Files.GetImportFile)
	api.POST("/imports/:id/select", rt.Imports.SelectCandidates)
	api.POST("/imports/:id/bulk-approve", rt.Imports.BulkApprove)
	api.POST("/imports/:id/commit", rt.Imports.Commit)

	// Review endpoints
	api.POST("/imports/:id/candidates/:index/approve", rt.Imports.ApproveCandidate)
	api.POST("/imports/:id/candidates/:index/discard", rt.Imports.DiscardCandidate)
	api.POST("/imports/:id/candidates/:index/revert", rt.Imports.RevertCandidate)
	api.POST("/imports/:id/candidates/:index/topic", rt.Imports.SetCandidateTopic)

	// Catalog endpoints
	api.GET("/topics", rt.Catalog.ListTopics)
	api.POST("/exams/blueprint", rt.Catalog.AssembleExam)
}
