// Package generation defines the boundary between the job pipeline and
// external AI/LLM services: content analysis (summary and insights) and
// quiz question generation, following the hexagonal architecture pattern.
package generation
