package api

import (
	"github.com/sells-group/opportunity-agent/internal/model"
	"github.com/sells-group/opportunity-agent/internal/pipeline"
)

// Response is the body of GET /recommendation/{customer_id}.
type Response struct {
	CustomerID      string                 `json:"customer_id"`
	ResearchReport  string                 `json:"research_report"`
	Recommendations []model.Recommendation `json:"recommendations"`
	Error           *string                `json:"error"`
}

// NewResponse converts a finished pipeline state into a Response. A failed
// state yields the placeholder report and no recommendations.
func NewResponse(state model.PipelineState) Response {
	if state.Failed() {
		return ErrorResponse(state.CustomerID, ErrorMessage(state.Err))
	}
	recs := state.Recommendations
	if recs == nil {
		recs = []model.Recommendation{}
	}
	return Response{
		CustomerID:      state.CustomerID,
		ResearchReport:  state.Report,
		Recommendations: recs,
	}
}

// ErrorResponse builds a failure body.
func ErrorResponse(customerID, msg string) Response {
	return Response{
		CustomerID:      customerID,
		ResearchReport:  pipeline.PlaceholderReport,
		Recommendations: []model.Recommendation{},
		Error:           &msg,
	}
}

// ErrorMessage renders a pipeline error for clients. Causes stay in the logs.
func ErrorMessage(err *model.PipelineError) string {
	if err.Kind == model.ErrorKindNotFound {
		return err.Message
	}
	return string(err.Kind) + ": " + err.Message
}
