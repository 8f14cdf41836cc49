package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	redisclient "github.com/anuragind003/cdp-backend/internal/clients/redis"
	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/repos"
	"github.com/anuragind003/cdp-backend/internal/types"
)

// Identifier fields in dedup priority order. When supplied identifiers match
// more than one existing row, the earliest field here picks the winner.
var identifierPriority = []identifierField{
	{"mobile", func(c *types.Customer) *string { return c.Mobile }},
	{"pan", func(c *types.Customer) *string { return c.PAN }},
	{"aadhaar", func(c *types.Customer) *string { return c.Aadhaar }},
	{"ucid", func(c *types.Customer) *string { return c.UCID }},
	{"prev_lan", func(c *types.Customer) *string { return c.PrevLAN }},
}

type identifierField struct {
	name string
	get  func(*types.Customer) *string
}

// MatchResult describes how Dedupe landed an incoming record.
type MatchResult struct {
	Created      bool        `json:"created"`
	MatchedField string      `json:"matched_field,omitempty"`
	Conflict     bool        `json:"conflict"`
	ConflictIDs  []uuid.UUID `json:"conflict_ids,omitempty"`
}

type CustomerService interface {
	// Dedupe finds-or-creates the customer row for an incoming partial
	// record and merges its non-empty fields. Safe to call inside an outer
	// transaction (tx non-nil) or standalone (tx nil).
	Dedupe(ctx context.Context, tx *gorm.DB, incoming *types.Customer) (*types.Customer, *MatchResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Customer, error)
	ListEvents(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*types.CampaignEvent, error)
}

type customerService struct {
	db        *gorm.DB
	log       *logger.Logger
	repo      repos.CustomerRepo
	eventRepo repos.CampaignEventRepo
	cache     redisclient.IdentityCache
}

func NewCustomerService(db *gorm.DB, log *logger.Logger, repo repos.CustomerRepo, eventRepo repos.CampaignEventRepo, cache redisclient.IdentityCache) CustomerService {
	serviceLog := log.With("service", "CustomerService")
	return &customerService{
		db:        db,
		log:       serviceLog,
		repo:      repo,
		eventRepo: eventRepo,
		cache:     cache,
	}
}

func normalizeIdentifiers(incoming *types.Customer) {
	clean := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		if v == "" {
			return nil
		}
		return &v
	}
	incoming.Mobile = clean(incoming.Mobile)
	incoming.Aadhaar = clean(incoming.Aadhaar)
	incoming.UCID = clean(incoming.UCID)
	incoming.PrevLAN = clean(incoming.PrevLAN)
	if p := clean(incoming.PAN); p != nil {
		upper := strings.ToUpper(*p)
		incoming.PAN = &upper
	} else {
		incoming.PAN = nil
	}
	incoming.Segment = strings.TrimSpace(incoming.Segment)
}

func (cs *customerService) Dedupe(ctx context.Context, tx *gorm.DB, incoming *types.Customer) (*types.Customer, *MatchResult, error) {
	if incoming == nil {
		return nil, nil, fmt.Errorf("no customer record given")
	}
	normalizeIdentifiers(incoming)
	if !hasAnyIdentifier(incoming) {
		return nil, nil, fmt.Errorf("at least one identifier (mobile, pan, aadhaar, ucid, prev_lan) is required")
	}

	if cached := cs.lookupCache(ctx, tx, incoming); cached != nil {
		result, err := cs.merge(ctx, tx, cached, incoming)
		if err != nil {
			return nil, nil, err
		}
		return cached, result, nil
	}

	matches, err := cs.repo.FindByIdentifiers(ctx, tx, incoming)
	if err != nil {
		return nil, nil, fmt.Errorf("error searching customers by identifiers: %w", err)
	}

	if len(matches) == 0 {
		incoming.ID = uuid.New()
		created, err := cs.repo.Create(ctx, tx, []*types.Customer{incoming})
		if err != nil {
			return nil, nil, fmt.Errorf("error creating customer: %w", err)
		}
		cs.fillCache(ctx, created[0])
		return created[0], &MatchResult{Created: true}, nil
	}

	winner, matchedField, losers := pickWinner(incoming, matches)
	result := &MatchResult{MatchedField: matchedField}
	if len(losers) > 0 {
		result.Conflict = true
		for _, l := range losers {
			result.ConflictIDs = append(result.ConflictIDs, l.ID)
		}
		cs.recordConflict(ctx, tx, incoming, winner, losers)
	}

	mergeResult, err := cs.merge(ctx, tx, winner, incoming)
	if err != nil {
		return nil, nil, err
	}
	mergeResult.MatchedField = result.MatchedField
	mergeResult.Conflict = result.Conflict
	mergeResult.ConflictIDs = result.ConflictIDs

	cs.fillCache(ctx, winner)
	return winner, mergeResult, nil
}

func hasAnyIdentifier(c *types.Customer) bool {
	for _, f := range identifierPriority {
		if v := f.get(c); v != nil && *v != "" {
			return true
		}
	}
	return false
}

// pickWinner chooses the surviving row when identifiers matched multiple
// rows. Deterministic: the highest-priority supplied identifier that matched
// an existing row wins; everything else is reported as a conflict.
func pickWinner(incoming *types.Customer, matches []*types.Customer) (*types.Customer, string, []*types.Customer) {
	if len(matches) == 1 {
		return matches[0], matchedFieldFor(incoming, matches[0]), nil
	}
	for _, f := range identifierPriority {
		want := f.get(incoming)
		if want == nil || *want == "" {
			continue
		}
		for _, m := range matches {
			have := f.get(m)
			if have != nil && *have == *want {
				losers := make([]*types.Customer, 0, len(matches)-1)
				for _, other := range matches {
					if other.ID != m.ID {
						losers = append(losers, other)
					}
				}
				return m, f.name, losers
			}
		}
	}
	// Unreachable when FindByIdentifiers returned these rows, but stay safe.
	return matches[0], "", matches[1:]
}

func matchedFieldFor(incoming, existing *types.Customer) string {
	for _, f := range identifierPriority {
		want := f.get(incoming)
		have := f.get(existing)
		if want != nil && have != nil && *want == *have {
			return f.name
		}
	}
	return ""
}

// merge overlays the incoming record onto the existing row: identifiers fill
// empty columns only, DND true is sticky, attributes are key-merged with
// incoming keys winning.
func (cs *customerService) merge(ctx context.Context, tx *gorm.DB, existing, incoming *types.Customer) (*MatchResult, error) {
	updates := map[string]interface{}{}

	for _, f := range identifierPriority {
		want := f.get(incoming)
		have := f.get(existing)
		if want == nil || *want == "" {
			continue
		}
		if have == nil || *have == "" {
			updates[f.name] = *want
			setIdentifier(existing, f.name, *want)
		}
	}
	if incoming.Segment != "" && incoming.Segment != existing.Segment {
		updates["segment"] = incoming.Segment
		existing.Segment = incoming.Segment
	}
	if incoming.DND && !existing.DND {
		updates["dnd"] = true
		existing.DND = true
	}
	if len(incoming.Attributes) > 0 {
		merged, err := mergeAttributes(existing.Attributes, incoming.Attributes)
		if err != nil {
			return nil, fmt.Errorf("error merging attributes: %w", err)
		}
		if merged != nil {
			updates["attributes"] = merged
			existing.Attributes = merged
		}
	}

	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		if err := cs.repo.UpdateFields(ctx, tx, existing.ID, updates); err != nil {
			return nil, fmt.Errorf("error merging customer fields: %w", err)
		}
	}
	return &MatchResult{Created: false}, nil
}

func setIdentifier(c *types.Customer, field, value string) {
	v := value
	switch field {
	case "mobile":
		c.Mobile = &v
	case "pan":
		c.PAN = &v
	case "aadhaar":
		c.Aadhaar = &v
	case "ucid":
		c.UCID = &v
	case "prev_lan":
		c.PrevLAN = &v
	}
}

func mergeAttributes(existing, incoming datatypes.JSON) (datatypes.JSON, error) {
	if len(incoming) == 0 {
		return nil, nil
	}
	var incomingMap map[string]any
	if err := json.Unmarshal(incoming, &incomingMap); err != nil {
		return nil, fmt.Errorf("invalid incoming attributes json: %w", err)
	}
	base := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &base); err != nil {
			// Existing blob is unreadable; incoming replaces it wholesale.
			base = map[string]any{}
		}
	}
	for k, v := range incomingMap {
		base[k] = v
	}
	out, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}

func (cs *customerService) lookupCache(ctx context.Context, tx *gorm.DB, incoming *types.Customer) *types.Customer {
	if cs.cache == nil {
		return nil
	}
	for _, f := range identifierPriority {
		want := f.get(incoming)
		if want == nil || *want == "" {
			continue
		}
		id, ok := cs.cache.Get(ctx, f.name, *want)
		if !ok {
			continue
		}
		rows, err := cs.repo.GetByIDs(ctx, tx, []uuid.UUID{id})
		if err != nil || len(rows) == 0 {
			cs.cache.Invalidate(ctx, f.name, *want)
			continue
		}
		have := f.get(rows[0])
		if have == nil || *have != *want {
			cs.cache.Invalidate(ctx, f.name, *want)
			continue
		}
		return rows[0]
	}
	return nil
}

func (cs *customerService) fillCache(ctx context.Context, customer *types.Customer) {
	if cs.cache == nil || customer == nil {
		return
	}
	for _, f := range identifierPriority {
		if v := f.get(customer); v != nil && *v != "" {
			cs.cache.Set(ctx, f.name, *v, customer.ID)
		}
	}
}

func (cs *customerService) recordConflict(ctx context.Context, tx *gorm.DB, incoming, winner *types.Customer, losers []*types.Customer) {
	loserIDs := make([]string, 0, len(losers))
	for _, l := range losers {
		loserIDs = append(loserIDs, l.ID.String())
	}
	payload, err := json.Marshal(map[string]any{
		"winner_id": winner.ID.String(),
		"loser_ids": loserIDs,
	})
	if err != nil {
		payload = nil
	}
	winnerID := winner.ID
	event := &types.CampaignEvent{
		ID:         uuid.New(),
		CustomerID: &winnerID,
		Source:     "dedup",
		Type:       types.EventTypeIdentifierConflict,
		Payload:    datatypes.JSON(payload),
		OccurredAt: time.Now(),
	}
	if _, err := cs.eventRepo.Create(ctx, tx, []*types.CampaignEvent{event}); err != nil {
		cs.log.Warn("Failed to record identifier conflict event", "error", err)
	}
	cs.log.Warn("Identifier conflict during dedup",
		"winner", winner.ID,
		"losers", loserIDs,
	)
}

func (cs *customerService) GetByID(ctx context.Context, id uuid.UUID) (*types.Customer, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("customer id required")
	}
	rows, err := cs.repo.GetByIDs(ctx, nil, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("error fetching customer: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("customer does not exist")
	}
	return rows[0], nil
}

func (cs *customerService) ListEvents(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*types.CampaignEvent, error) {
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("customer id required")
	}
	return cs.eventRepo.ListByCustomerID(ctx, nil, customerID, limit, offset)
}
