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
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/repos"
	"github.com/anuragind003/cdp-backend/internal/types"
)

// Moengage import columns. The campaign platform matches on mobile; the
// rest are personalization attributes.
var moengageHeader = []string{
	"customer_id", "mobile", "segment", "offer_id", "product_type",
	"offer_type", "amount", "valid_from", "valid_to", "lan",
}

var duplicatesHeader = []string{
	"offer_id", "customer_id", "mobile", "product_type", "offer_type",
	"amount", "created_at",
}

var uniquesHeader = []string{
	"customer_id", "mobile", "pan", "ucid", "segment", "dnd", "created_at",
}

var errorsHeader = []string{"row", "column", "message"}

type ExportService interface {
	// WriteMoengageCSV streams the campaign file: active offers inside their
	// validity window, DND customers excluded.
	WriteMoengageCSV(ctx context.Context, w io.Writer) (int, error)
	// WriteDuplicatesCSV lists offers marked Duplicate since the cutoff.
	WriteDuplicatesCSV(ctx context.Context, w io.Writer, since time.Time) (int, error)
	// WriteUniquesCSV lists customers first seen since the cutoff.
	WriteUniquesCSV(ctx context.Context, w io.Writer, since time.Time) (int, error)
	// WriteRunErrorsCSV dumps the row-level errors of an ingestion run.
	WriteRunErrorsCSV(ctx context.Context, w io.Writer, runID uuid.UUID) (int, error)
	// WriteBundle writes the moengage/duplicates/uniques files into dir,
	// one goroutine per file.
	WriteBundle(ctx context.Context, dir string, since time.Time) error
}

type exportService struct {
	db           *gorm.DB
	log          *logger.Logger
	offerRepo    repos.OfferRepo
	customerRepo repos.CustomerRepo
	runRepo      repos.IngestionRunRepo
}

func NewExportService(db *gorm.DB, log *logger.Logger, offerRepo repos.OfferRepo, customerRepo repos.CustomerRepo, runRepo repos.IngestionRunRepo) ExportService {
	serviceLog := log.With("service", "ExportService")
	return &exportService{
		db:           db,
		log:          serviceLog,
		offerRepo:    offerRepo,
		customerRepo: customerRepo,
		runRepo:      runRepo,
	}
}

func (es *exportService) WriteMoengageCSV(ctx context.Context, w io.Writer) (int, error) {
	offers, err := es.offerRepo.ListExportable(ctx, nil, time.Now())
	if err != nil {
		return 0, fmt.Errorf("error listing exportable offers: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(moengageHeader); err != nil {
		return 0, err
	}
	count := 0
	for _, offer := range offers {
		if offer.Customer == nil {
			continue
		}
		record := []string{
			offer.CustomerID.String(),
			deref(offer.Customer.Mobile),
			offer.Customer.Segment,
			offer.ID.String(),
			offer.ProductType,
			offer.OfferType,
			formatAmount(offer.Amount),
			formatDate(offer.ValidFrom),
			formatDate(offer.ValidTo),
			deref(offer.LAN),
		}
		if err := cw.Write(record); err != nil {
			return count, err
		}
		count++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return count, err
	}

	dnd, err := es.customerRepo.CountDND(ctx, nil)
	if err != nil {
		es.log.Warn("DND count unavailable", "error", err)
	} else {
		es.log.Info("Moengage export written", "rows", count, "dnd_suppressed", dnd)
	}
	return count, nil
}

func (es *exportService) WriteDuplicatesCSV(ctx context.Context, w io.Writer, since time.Time) (int, error) {
	offers, err := es.offerRepo.ListByStatusSince(ctx, nil, types.OfferStatusDuplicate, since)
	if err != nil {
		return 0, fmt.Errorf("error listing duplicate offers: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(duplicatesHeader); err != nil {
		return 0, err
	}
	count := 0
	for _, offer := range offers {
		mobile := ""
		if offer.Customer != nil {
			mobile = deref(offer.Customer.Mobile)
		}
		record := []string{
			offer.ID.String(),
			offer.CustomerID.String(),
			mobile,
			offer.ProductType,
			offer.OfferType,
			formatAmount(offer.Amount),
			offer.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return count, err
		}
		count++
	}
	cw.Flush()
	return count, cw.Error()
}

func (es *exportService) WriteUniquesCSV(ctx context.Context, w io.Writer, since time.Time) (int, error) {
	customers, err := es.customerRepo.ListCreatedSince(ctx, nil, since)
	if err != nil {
		return 0, fmt.Errorf("error listing new customers: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(uniquesHeader); err != nil {
		return 0, err
	}
	count := 0
	for _, customer := range customers {
		record := []string{
			customer.ID.String(),
			deref(customer.Mobile),
			deref(customer.PAN),
			deref(customer.UCID),
			customer.Segment,
			strconv.FormatBool(customer.DND),
			customer.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return count, err
		}
		count++
	}
	cw.Flush()
	return count, cw.Error()
}

func (es *exportService) WriteRunErrorsCSV(ctx context.Context, w io.Writer, runID uuid.UUID) (int, error) {
	runs, err := es.runRepo.GetByIDs(ctx, nil, []uuid.UUID{runID})
	if err != nil {
		return 0, fmt.Errorf("error fetching ingestion run: %w", err)
	}
	if len(runs) == 0 {
		return 0, fmt.Errorf("ingestion run does not exist")
	}

	var rowErrors []types.RowError
	if len(runs[0].Errors) > 0 {
		if err := json.Unmarshal(runs[0].Errors, &rowErrors); err != nil {
			return 0, fmt.Errorf("error decoding run errors: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(errorsHeader); err != nil {
		return 0, err
	}
	for _, re := range rowErrors {
		record := []string{strconv.Itoa(re.Row), re.Column, re.Message}
		if err := cw.Write(record); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(rowErrors), cw.Error()
}

func (es *exportService) WriteBundle(ctx context.Context, dir string, since time.Time) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating export dir: %w", err)
	}

	write := func(name string, fn func(io.Writer) error) func() error {
		return func() error {
			f, err := os.Create(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("create %s: %w", name, err)
			}
			defer f.Close()
			if err := fn(f); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
			return f.Close()
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(write("moengage.csv", func(w io.Writer) error {
		_, err := es.WriteMoengageCSV(gctx, w)
		return err
	}))
	g.Go(write("duplicates.csv", func(w io.Writer) error {
		_, err := es.WriteDuplicatesCSV(gctx, w, since)
		return err
	}))
	g.Go(write("uniques.csv", func(w io.Writer) error {
		_, err := es.WriteUniquesCSV(gctx, w, since)
		return err
	}))
	if err := g.Wait(); err != nil {
		return err
	}
	es.log.Info("Export bundle written", "dir", dir, "since", since)
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(csvDateLayout)
}
