package models

// Requests for the HTTP endpoints. Tags drive binding, defaults and validation.

type PredictRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,max=5,dive,required,min=1,max=10"`
}

type AnalysisRequest struct {
	Symbols string `query:"symbols" json:"symbols" validate:"required"`
	Days    int    `query:"days" json:"days" default:"365" validate:"gte=60,lte=3650"`
}

type ReportsRequest struct {
	Symbol string `param:"symbol" validate:"required,min=1,max=10"`
	Limit  int    `query:"limit" default:"10" validate:"gte=1,lte=100"`
}

type JobStatusRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}
