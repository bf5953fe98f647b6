package discovery

import (
	"github.com/exposome-labs/causeway/backend/pkg/common"
)

// ErrorCode classifies a failed discovery request for the caller.
type ErrorCode string

const (
	// CodeNoCausalPath means every strategy, the cache, and the fallback
	// dataset came up empty for every requested pair.
	CodeNoCausalPath ErrorCode = "NO_CAUSAL_PATH"
	// CodeTimeout means the per-request deadline expired before anything
	// resolved.
	CodeTimeout ErrorCode = "TIMEOUT"
	// CodeInvalidRequest means the request shape failed validation.
	CodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// CodeInternalContractError means a built graph violated the output
	// contract. This is a bug report, not a data condition.
	CodeInternalContractError ErrorCode = "INTERNAL_CONTRACT_ERROR"
)

// RequestOptions tunes a single discovery request.
type RequestOptions struct {
	// MaxGraphDepth bounds path length in nodes. Zero defaults to 4.
	MaxGraphDepth int `json:"maxGraphDepth" validate:"gte=0,lte=10"`
	// MinEvidenceCount filters edges below this evidence volume out of the
	// final graph. Zero defaults to 2.
	MinEvidenceCount int `json:"minEvidenceCount" validate:"gte=0"`
}

// Request is an inbound discovery request from the orchestration layer.
//
// FocusEntities are the causal sources under investigation, ContextEntities
// the outcomes of interest, both as free text. Genetics maps gene symbol to
// genotype label.
type Request struct {
	RequestID       string            `json:"requestId"`
	FocusEntities   []string          `json:"focusEntities" validate:"required,min=1,dive,min=1"`
	ContextEntities []string          `json:"contextEntities" validate:"dive,min=1"`
	Genetics        map[string]string `json:"genetics"`
	Options         RequestOptions    `json:"options"`
}

// Normalized returns a copy with option defaults filled in.
func (r Request) Normalized() Request {
	if r.Options.MaxGraphDepth == 0 {
		r.Options.MaxGraphDepth = 4
	}
	if r.Options.MinEvidenceCount == 0 {
		r.Options.MinEvidenceCount = 2
	}
	return r
}

// Metadata summarizes the work behind a successful response.
type Metadata struct {
	QueryTimeMs         int `json:"queryTimeMs"`
	PathsExplored       int `json:"pathsExplored"`
	TotalEvidencePapers int `json:"totalEvidencePapers"`
}

// ErrorInfo is the typed error body of a failed response.
type ErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Response is the outbound result of a discovery request. Exactly one of
// CausalGraph or Error is set, discriminated by Status.
type Response struct {
	RequestID    string              `json:"requestId"`
	Status       string              `json:"status"`
	CausalGraph  *common.CausalGraph `json:"causalGraph,omitempty"`
	Metadata     *Metadata           `json:"metadata,omitempty"`
	Explanations []string            `json:"explanations,omitempty"`
	Error        *ErrorInfo          `json:"error,omitempty"`
}

// SuccessResponse builds a success envelope.
func SuccessResponse(requestID string, graph common.CausalGraph, metadata Metadata, explanations []string) Response {
	return Response{
		RequestID:    requestID,
		Status:       "success",
		CausalGraph:  &graph,
		Metadata:     &metadata,
		Explanations: explanations,
	}
}

// ErrorResponse builds a typed-error envelope.
func ErrorResponse(requestID string, code ErrorCode, message string) Response {
	return Response{
		RequestID: requestID,
		Status:    "error",
		Error:     &ErrorInfo{Code: code, Message: message},
	}
}
