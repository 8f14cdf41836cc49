package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/precedence"
	"github.com/anuragind003/cdp-backend/internal/repos"
	"github.com/anuragind003/cdp-backend/internal/types"
)

const csvDateLayout = "2006-01-02"

// LeadInput is one incoming customer+offer record, from JSON or a CSV row.
type LeadInput struct {
	Mobile     string          `json:"mobile,omitempty"`
	PAN        string          `json:"pan,omitempty"`
	Aadhaar    string          `json:"aadhaar,omitempty"`
	UCID       string          `json:"ucid,omitempty"`
	PrevLAN    string          `json:"prev_lan,omitempty"`
	Segment    string          `json:"segment,omitempty"`
	DND        bool            `json:"dnd,omitempty"`
	Attributes json.RawMessage `json:"attributes,omitempty"`

	ProductType string  `json:"product_type"`
	OfferType   string  `json:"offer_type,omitempty"`
	ValidFrom   string  `json:"valid_from,omitempty"`
	ValidTo     string  `json:"valid_to,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	LAN         string  `json:"lan,omitempty"`
}

// LeadResult reports where a lead landed after dedup + precedence.
type LeadResult struct {
	CustomerID uuid.UUID         `json:"customer_id"`
	OfferID    *uuid.UUID        `json:"offer_id,omitempty"`
	Action     precedence.Action `json:"action"`
	Reason     string            `json:"reason"`
	Match      *MatchResult      `json:"match"`
}

type IngestionService interface {
	// ProcessLead runs one record through dedup and precedence in a single
	// transaction.
	ProcessLead(ctx context.Context, input *LeadInput) (*LeadResult, error)
	// UploadCSV ingests an admin CSV upload synchronously: one IngestionRun
	// row, per-row fault isolation, counts and row errors on the run.
	UploadCSV(ctx context.Context, fileName string, r io.Reader) (*types.IngestionRun, error)
	// EnqueueFile queues an Offermart file for the run worker.
	EnqueueFile(ctx context.Context, path string) (*types.IngestionRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (*types.IngestionRun, error)
	// LatestRun returns the newest run for a source (api-csv or offermart).
	LatestRun(ctx context.Context, source string) (*types.IngestionRun, error)
	// StartWorker begins claiming queued/retryable/stale runs until ctx ends.
	StartWorker(ctx context.Context)
	// ProcessNextRun claims and processes at most one run. Used by the batch
	// binary to drain the queue without the ticker loop.
	ProcessNextRun(ctx context.Context) (bool, error)
}

type ingestionService struct {
	db              *gorm.DB
	log             *logger.Logger
	runRepo         repos.IngestionRunRepo
	customerService CustomerService
	offerService    OfferService
}

func NewIngestionService(db *gorm.DB, log *logger.Logger, runRepo repos.IngestionRunRepo, customerService CustomerService, offerService OfferService) IngestionService {
	serviceLog := log.With("service", "IngestionService")
	return &ingestionService{
		db:              db,
		log:             serviceLog,
		runRepo:         runRepo,
		customerService: customerService,
		offerService:    offerService,
	}
}

func (is *ingestionService) ProcessLead(ctx context.Context, input *LeadInput) (*LeadResult, error) {
	if input == nil {
		return nil, fmt.Errorf("no lead given")
	}
	sub, err := input.toSubmission()
	if err != nil {
		return nil, err
	}

	var result *LeadResult
	if err := is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, match, err := is.customerService.Dedupe(ctx, tx, input.toCustomer())
		if err != nil {
			return err
		}
		outcome, err := is.offerService.Submit(ctx, tx, customer.ID, sub)
		if err != nil {
			return err
		}
		result = &LeadResult{
			CustomerID: customer.ID,
			Action:     outcome.Decision.Action,
			Reason:     outcome.Decision.Reason,
			Match:      match,
		}
		if outcome.Offer != nil {
			id := outcome.Offer.ID
			result.OfferID = &id
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func (in *LeadInput) toCustomer() *types.Customer {
	customer := &types.Customer{
		Segment: in.Segment,
		DND:     in.DND,
	}
	set := func(v string) *string {
		if strings.TrimSpace(v) == "" {
			return nil
		}
		trimmed := strings.TrimSpace(v)
		return &trimmed
	}
	customer.Mobile = set(in.Mobile)
	customer.PAN = set(in.PAN)
	customer.Aadhaar = set(in.Aadhaar)
	customer.UCID = set(in.UCID)
	customer.PrevLAN = set(in.PrevLAN)
	if len(in.Attributes) > 0 {
		customer.Attributes = datatypes.JSON(in.Attributes)
	}
	return customer
}

func (in *LeadInput) toSubmission() (OfferSubmission, error) {
	sub := OfferSubmission{
		OfferType:   strings.TrimSpace(in.OfferType),
		ProductType: strings.TrimSpace(in.ProductType),
		Amount:      in.Amount,
	}
	if sub.ProductType == "" {
		return sub, fmt.Errorf("product_type required")
	}
	if in.ValidFrom != "" {
		t, err := time.Parse(csvDateLayout, in.ValidFrom)
		if err != nil {
			return sub, fmt.Errorf("invalid valid_from %q: %w", in.ValidFrom, err)
		}
		sub.ValidFrom = t
	}
	if in.ValidTo != "" {
		t, err := time.Parse(csvDateLayout, in.ValidTo)
		if err != nil {
			return sub, fmt.Errorf("invalid valid_to %q: %w", in.ValidTo, err)
		}
		sub.ValidTo = t
	}
	if !sub.ValidFrom.IsZero() && !sub.ValidTo.IsZero() && sub.ValidTo.Before(sub.ValidFrom) {
		return sub, fmt.Errorf("valid_to precedes valid_from")
	}
	if lan := strings.TrimSpace(in.LAN); lan != "" {
		sub.LAN = &lan
	}
	return sub, nil
}

func (is *ingestionService) UploadCSV(ctx context.Context, fileName string, r io.Reader) (*types.IngestionRun, error) {
	run := &types.IngestionRun{
		ID:       uuid.New(),
		Source:   types.RunSourceAPICSV,
		FileName: fileName,
		Status:   types.RunStatusRunning,
	}
	now := time.Now()
	run.StartedAt = &now
	created, err := is.runRepo.Create(ctx, nil, []*types.IngestionRun{run})
	if err != nil {
		return nil, fmt.Errorf("error creating ingestion run: %w", err)
	}
	run = created[0]

	total, success, rowErrors := is.processRows(ctx, run.ID, csv.NewReader(r))

	if err := is.finishRun(ctx, run.ID, total, success, rowErrors); err != nil {
		return nil, err
	}
	runs, err := is.runRepo.GetByIDs(ctx, nil, []uuid.UUID{run.ID})
	if err != nil || len(runs) == 0 {
		return run, nil
	}
	return runs[0], nil
}

// processRows drives the row loop. A bad row is recorded and skipped, never
// fatal to the batch.
func (is *ingestionService) processRows(ctx context.Context, runID uuid.UUID, reader *csv.Reader) (total, success int, rowErrors []types.RowError) {
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, 0, []types.RowError{{Row: 0, Message: fmt.Sprintf("unreadable header: %v", err)}}
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["product_type"]; !ok {
		return 0, 0, []types.RowError{{Row: 0, Column: "product_type", Message: "missing required column"}}
	}

	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			rowErrors = append(rowErrors, types.RowError{Row: rowNum, Message: err.Error()})
			total++
			continue
		}
		total++

		input, rowErr := rowToLead(columns, record)
		if rowErr != nil {
			rowErrors = append(rowErrors, types.RowError{Row: rowNum, Column: rowErr.Column, Message: rowErr.Message})
			continue
		}
		if _, err := is.ProcessLead(ctx, input); err != nil {
			rowErrors = append(rowErrors, types.RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		success++

		if rowNum%200 == 0 {
			_ = is.runRepo.Heartbeat(ctx, nil, runID)
		}
	}
	return total, success, rowErrors
}

func rowToLead(columns map[string]int, record []string) (*LeadInput, *types.RowError) {
	get := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	input := &LeadInput{
		Mobile:      get("mobile"),
		PAN:         get("pan"),
		Aadhaar:     get("aadhaar"),
		UCID:        get("ucid"),
		PrevLAN:     get("prev_lan"),
		Segment:     get("segment"),
		ProductType: get("product_type"),
		OfferType:   get("offer_type"),
		ValidFrom:   get("valid_from"),
		ValidTo:     get("valid_to"),
		LAN:         get("lan"),
	}
	if input.ProductType == "" {
		return nil, &types.RowError{Column: "product_type", Message: "required"}
	}
	if v := get("dnd"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, &types.RowError{Column: "dnd", Message: fmt.Sprintf("invalid bool %q", v)}
		}
		input.DND = b
	}
	if v := get("amount"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &types.RowError{Column: "amount", Message: fmt.Sprintf("invalid number %q", v)}
		}
		input.Amount = amount
	}
	return input, nil
}

func (is *ingestionService) finishRun(ctx context.Context, runID uuid.UUID, total, success int, rowErrors []types.RowError) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":        types.RunStatusCompleted,
		"total_rows":    total,
		"success_count": success,
		"error_count":   len(rowErrors),
		"finished_at":   now,
		"updated_at":    now,
	}
	if len(rowErrors) > 0 {
		blob, err := json.Marshal(rowErrors)
		if err == nil {
			updates["errors"] = datatypes.JSON(blob)
		}
	}
	if err := is.runRepo.UpdateFields(ctx, nil, runID, updates); err != nil {
		return fmt.Errorf("error finishing ingestion run: %w", err)
	}
	return nil
}

func (is *ingestionService) EnqueueFile(ctx context.Context, path string) (*types.IngestionRun, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("file path required")
	}
	run := &types.IngestionRun{
		ID:       uuid.New(),
		Source:   types.RunSourceOffermart,
		FileName: filepath.Base(path),
		FilePath: path,
		Status:   types.RunStatusQueued,
	}
	created, err := is.runRepo.Create(ctx, nil, []*types.IngestionRun{run})
	if err != nil {
		return nil, fmt.Errorf("error enqueueing ingestion run: %w", err)
	}
	return created[0], nil
}

func (is *ingestionService) GetRun(ctx context.Context, id uuid.UUID) (*types.IngestionRun, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("run id required")
	}
	runs, err := is.runRepo.GetByIDs(ctx, nil, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("error fetching ingestion run: %w", err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("ingestion run does not exist")
	}
	return runs[0], nil
}

func (is *ingestionService) LatestRun(ctx context.Context, source string) (*types.IngestionRun, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		source = types.RunSourceOffermart
	}
	if source != types.RunSourceAPICSV && source != types.RunSourceOffermart {
		return nil, fmt.Errorf("unknown run source %q", source)
	}
	run, err := is.runRepo.GetLatestBySource(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("error fetching latest ingestion run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("no ingestion runs for source %s", source)
	}
	return run, nil
}

func (is *ingestionService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := is.ProcessNextRun(ctx); err != nil {
					is.log.Warn("Run worker iteration failed", "error", err)
				}
			}
		}
	}()
}

func (is *ingestionService) ProcessNextRun(ctx context.Context) (bool, error) {
	// Worker policy
	const maxAttempts = 3
	retryDelay := 30 * time.Second
	staleRunning := 5 * time.Minute

	run, err := is.runRepo.ClaimNextRunnable(ctx, nil, maxAttempts, retryDelay, staleRunning)
	if err != nil {
		return false, err
	}
	if run == nil {
		return false, nil
	}
	is.processRun(ctx, run)
	return true, nil
}

func (is *ingestionService) processRun(ctx context.Context, run *types.IngestionRun) {
	fail := func(err error) {
		now := time.Now()
		_ = is.runRepo.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
			"status":        types.RunStatusFailed,
			"last_error":    err.Error(),
			"last_error_at": now,
			"updated_at":    now,
		})
		is.log.Warn("Ingestion run failed", "run_id", run.ID, "error", err)
	}

	if run.FilePath == "" {
		fail(fmt.Errorf("run has no file path"))
		return
	}
	f, err := os.Open(run.FilePath)
	if err != nil {
		fail(fmt.Errorf("open file: %w", err))
		return
	}
	defer f.Close()

	total, success, rowErrors := is.processRows(ctx, run.ID, csv.NewReader(f))
	if err := is.finishRun(ctx, run.ID, total, success, rowErrors); err != nil {
		fail(err)
		return
	}
	is.log.Info("Ingestion run completed",
		"run_id", run.ID,
		"total", total,
		"success", success,
		"errors", len(rowErrors),
	)
}
