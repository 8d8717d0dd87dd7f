package dto

import "github.com/noah-isme/data-siswa-api/pkg/ai"

// ChatRequest carries one user message plus prior conversation turns.
type ChatRequest struct {
	Message string       `json:"message" validate:"required"`
	History []ai.Message `json:"history"`
}

// ChatResponse returns the assistant reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}
