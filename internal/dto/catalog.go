package dto

import "github.com/noah-isme/malla-api/internal/models"

// CourseDescriptionResponse carries generated study guidance for a course.
type CourseDescriptionResponse struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SuccessorsResponse lists the courses unlocked by a course.
type SuccessorsResponse struct {
	Code       string          `json:"code"`
	Successors []models.Course `json:"successors"`
}
