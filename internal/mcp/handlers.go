package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/tagfit/internal/capacity"
	"github.com/hpungsan/tagfit/internal/config"
	"github.com/hpungsan/tagfit/internal/errors"
	"github.com/hpungsan/tagfit/internal/ops"
	"github.com/hpungsan/tagfit/internal/record"
	"github.com/hpungsan/tagfit/internal/report"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db    *sql.DB
	cfg   *config.Config
	table *capacity.Table
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, table *capacity.Table) *Handlers {
	if table == nil {
		table = capacity.DefaultTable()
	}
	return &Handlers{db: db, cfg: cfg, table: table}
}

// Request types for each tool

// ResolveRequest represents the arguments for tag_resolve.
type ResolveRequest struct {
	Serial string `json:"serial,omitempty"`
}

// EstimateRequest represents the arguments for tag_estimate.
type EstimateRequest struct {
	Records []record.Record `json:"records"`
}

// PlanRequest represents the arguments for tag_plan.
type PlanRequest struct {
	Records []record.Record `json:"records,omitempty"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Serial  string          `json:"serial,omitempty"`
	TagType string          `json:"tag_type,omitempty"`
	Budget  *int            `json:"budget,omitempty"`
	Report  bool            `json:"report,omitempty"`
}

// PlanResponse is the tag_plan result, optionally with a rendered report.
type PlanResponse struct {
	*ops.PlanOutput
	Report string `json:"report,omitempty"`
}

// StoreRequest represents the arguments for draft_store.
type StoreRequest struct {
	Name    string          `json:"name"`
	Title   *string         `json:"title,omitempty"`
	Records []record.Record `json:"records"`
	Mode    string          `json:"mode,omitempty"`
}

// AddressRequest represents the arguments for draft_fetch and draft_delete.
type AddressRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ListRequest represents the arguments for draft_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Handler implementations

// HandleProfiles handles the tag_profiles tool call.
func (h *Handlers) HandleProfiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.Profiles(h.table))
}

// HandleResolve handles the tag_resolve tool call.
func (h *Handlers) HandleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ResolveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	return successResult(ops.Resolve(h.table, ops.ResolveInput{Serial: input.Serial}))
}

// HandleEstimate handles the tag_estimate tool call.
func (h *Handlers) HandleEstimate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EstimateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if len(input.Records) == 0 {
		return errorResult(errors.NewInvalidRequest("records are required")), nil
	}

	return successResult(ops.Estimate(h.table, ops.EstimateInput{Records: input.Records}))
}

// HandlePlan handles the tag_plan tool call.
func (h *Handlers) HandlePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PlanRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Plan(ctx, h.db, h.table, ops.PlanInput{
		Records: input.Records,
		ID:      input.ID,
		Name:    input.Name,
		Target: ops.Target{
			Serial:  input.Serial,
			TagType: input.TagType,
			Budget:  input.Budget,
		},
	})
	if err != nil {
		return errorResult(err), nil
	}

	resp := PlanResponse{PlanOutput: result}
	if input.Report {
		resp.Report = report.Markdown(report.Data{
			TagType:         result.TagType,
			UsableBytes:     result.UsableBytes,
			EffectiveBudget: result.EffectiveBudget,
			Plan:            result.Plan,
		})
	}
	return successResult(resp)
}

// HandleStore handles the draft_store tool call.
func (h *Handlers) HandleStore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StoreRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Store(ctx, h.db, h.cfg, ops.StoreInput{
		Name:    input.Name,
		Title:   input.Title,
		Records: input.Records,
		Mode:    ops.StoreMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFetch handles the draft_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddressRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.db, ops.FetchInput{ID: input.ID, Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles the draft_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.db, ops.ListInput{Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the draft_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddressRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(ctx, h.db, ops.DeleteInput{ID: input.ID, Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var tErr *errors.TagError
	if stderrors.As(err, &tErr) {
		message := tErr.Message
		if err != error(tErr) {
			// Keep any context added by wrapping.
			message = strings.TrimSuffix(err.Error(), tErr.Error()) + tErr.Message
		}
		errorObj := map[string]any{
			"code":    tErr.Code,
			"message": message,
			"status":  tErr.Status,
		}
		if tErr.Code != errors.ErrInternal && tErr.Details != nil {
			errorObj["details"] = tErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
