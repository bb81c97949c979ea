package api

// @title OFS Vanisher API
// @version v1.0.0
// @description API for maintaining ignore rules and mirroring them into the host proxy's scope-exclusion list.

// @host localhost:8891
// @BasePath /api
// @schemes http
