package dto

type ValidationError struct {
	Field   string `json:"field" example:"theme"`
	Message string `json:"message" example:"theme must be light or dark"`
}
