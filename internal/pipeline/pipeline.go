// Package pipeline drives the sequential extraction batch: candidate
// resolution, primary structured fetches, structure validation,
// secondary fallback, claims segmentation and lineage tagging, with
// one append-only record emitted per seed.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/claimharvest/internal/ident"
	"github.com/ppiankov/claimharvest/internal/lineage"
	"github.com/ppiankov/claimharvest/internal/model"
	"github.com/ppiankov/claimharvest/internal/registry"
	"github.com/ppiankov/claimharvest/internal/segment"
	"github.com/ppiankov/claimharvest/internal/webpub"
)

// Structure statuses and gate reasons produced by the batch loop
// itself (the validator contributes its own reason codes).
const (
	StructureOK         = "OK"
	StructureUncertain  = "STRUCTURE_UNCERTAIN"
	StructureNoValid    = "NO_VALID_PUBLICATION"
	StructureNormFailed = "NORMALIZATION_FAILED"
	ReasonInvalidSeed   = "INVALID_PUBLICATION_FORMAT"
	ReasonSecondaryText = "SECONDARY_CLAIMS_TEXT"
)

// Attempt audit bounds per record.
const (
	attemptedHeadMax = 5
	attemptLogMax    = 10
)

// RegistrySource is the primary authority surface the pipeline needs.
type RegistrySource interface {
	FetchClaims(ctx context.Context, id ident.Identifier) registry.FetchResult
	FetchFamily(ctx context.Context, id ident.Identifier) (registry.Family, registry.FetchResult)
}

// SecondarySource is the public-page fallback surface.
type SecondarySource interface {
	FetchClaims(ctx context.Context, seed ident.Identifier) webpub.Result
}

// ArtifactPaths maps a cache key to the on-disk artifact path recorded
// for downstream consumers. Nil when caching is disabled.
type ArtifactPaths interface {
	Path(key string) string
}

// Pipeline runs the extraction batch.
type Pipeline struct {
	registry    RegistrySource
	secondary   SecondarySource
	claimsPaths ArtifactPaths
	textPaths   ArtifactPaths
	pacer       *Pacer
	cfg         model.Config
	logger      *zap.Logger
}

// New creates a pipeline. secondary may be nil when the fallback
// authority is disabled.
func New(cfg model.Config, reg RegistrySource, secondary SecondarySource, claimsPaths, textPaths ArtifactPaths, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		registry:    reg,
		secondary:   secondary,
		claimsPaths: claimsPaths,
		textPaths:   textPaths,
		pacer:       NewPacer(cfg.Batch.Sleep),
		cfg:         cfg,
		logger:      logger,
	}
}

// Summary aggregates one batch run.
type Summary struct {
	Total    int
	OK       int
	Fallback int
	Failed   int
	ByReason map[string]int
	Halted   bool
}

// Run processes seeds in order, appending one record each. Failures
// are isolated per seed; the loop halts early only when the cumulative
// failure count crosses the configured ceiling.
func (p *Pipeline) Run(ctx context.Context, seeds []string, w *Writer) (Summary, error) {
	sum := Summary{ByReason: make(map[string]int)}

	for _, raw := range seeds {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		rec := p.ProcessSeed(ctx, raw, w)
		sum.Total++
		switch {
		case rec.ClaimsSource == model.ClaimsSourcePrimary:
			sum.OK++
		case rec.ClaimsSource == model.ClaimsSourceSecondary:
			sum.Fallback++
		default:
			sum.Failed++
			reason := rec.ClaimGateReason
			if reason == "" {
				reason = rec.StructureStatus
			}
			sum.ByReason[reason]++
		}

		if w != nil {
			if err := w.WriteRecord(rec); err != nil {
				return sum, err
			}
		}

		if p.cfg.Batch.MaxFail > 0 && sum.Failed >= p.cfg.Batch.MaxFail {
			p.logger.Warn("failure ceiling reached, halting batch",
				zap.Int("failed", sum.Failed), zap.Int("max_fail", p.cfg.Batch.MaxFail))
			sum.Halted = true
			return sum, nil
		}
	}
	return sum, nil
}

// ProcessSeed resolves one seed to a single extraction record. All
// non-fatal failures end up in the record, never as returned errors.
func (p *Pipeline) ProcessSeed(ctx context.Context, raw string, w *Writer) model.ExtractionRecord {
	rec := model.ExtractionRecord{
		ArtifactVersion: model.ArtifactVersion,
		CreatedAt:       time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		SeedPublication: raw,
		GovernanceFlags: []string{},
	}

	seed, err := ident.Parse(raw)
	if err != nil {
		p.logger.Warn("seed normalization failed", zap.String("seed", raw), zap.Error(err))
		rec.StructureStatus = StructureNormFailed
		rec.ClaimGateReason = ReasonInvalidSeed
		return rec
	}
	rec.SeedPublication = seed.Concat()

	family, famRes := p.registry.FetchFamily(ctx, seed)
	p.audit(w, seed, "REGISTRY_FAMILY", seed.Dotted(), famRes.Status, famRes.CacheHit, famRes.Retries, famRes.Elapsed)
	p.pace(ctx, famRes.CacheHit)
	if famRes.OK() {
		rec.FamilyID = family.FamilyID
	} else {
		p.logger.Debug("family lookup failed, continuing with seed only",
			zap.String("seed", seed.Dotted()), zap.String("status", famRes.Status))
	}

	if p.fetchPrimary(ctx, seed, family.Members, &rec, w) {
		return rec
	}

	if p.secondary != nil && p.cfg.Secondary.Enabled {
		p.fetchSecondary(ctx, seed, &rec, w)
	}

	if rec.StructureStatus == "" {
		rec.StructureStatus = StructureNoValid
	}
	return rec
}

// fetchPrimary walks the candidate list against the registry, stopping
// at the first structurally valid document.
func (p *Pipeline) fetchPrimary(ctx context.Context, seed ident.Identifier, family []registry.FamilyMember, rec *model.ExtractionRecord, w *Writer) bool {
	for _, cand := range BuildCandidates(seed, family) {
		docdb := cand.Dotted()
		res := p.registry.FetchClaims(ctx, cand)
		p.audit(w, seed, "REGISTRY_CLAIMS", docdb, res.Status, res.CacheHit, res.Retries, res.Elapsed)
		p.pace(ctx, res.CacheHit)

		rec.AttemptedCount++
		if len(rec.AttemptedHead) < attemptedHeadMax {
			rec.AttemptedHead = append(rec.AttemptedHead, docdb)
		}
		if len(rec.AttemptLog) < attemptLogMax {
			rec.AttemptLog = append(rec.AttemptLog, model.AttemptEntry{Docdb: docdb, FetchStatus: res.Status})
		}
		rec.LastFetchStatus = res.Status

		if !res.OK() {
			continue
		}

		st := registry.ValidateStructure(res.Doc)
		if !st.Valid {
			rec.StructureStatus = StructureUncertain
			rec.ClaimGateReason = st.Reason
			continue
		}

		rec.SelectedPublication = docdb
		rec.SelectedSource = lineage.SourceFamilyFallback
		if docdb == seed.Dotted() {
			rec.SelectedSource = lineage.SourceDirect
		}
		rec.StructureStatus = StructureOK
		rec.ClaimsCount = st.ClaimCount
		rec.ClaimGateReason = st.Reason
		rec.ClaimsSource = model.ClaimsSourcePrimary
		if p.claimsPaths != nil {
			rec.ClaimsRawPath = p.claimsPaths.Path(docdb)
		}
		p.segmentInto(registry.ClaimsText(res.Doc), rec, false)

		p.logger.Info("primary claims selected",
			zap.String("seed", seed.Dotted()),
			zap.String("selected", docdb),
			zap.String("source", rec.SelectedSource),
			zap.Int("claims", st.ClaimCount))
		return true
	}
	return false
}

// fetchSecondary runs the public-page fallback for the seed itself.
func (p *Pipeline) fetchSecondary(ctx context.Context, seed ident.Identifier, rec *model.ExtractionRecord, w *Writer) {
	rec.SecondarySeed = seed.Concat()
	res := p.secondary.FetchClaims(ctx, seed)
	p.audit(w, seed, "SECONDARY", seed.Concat(), res.Status, res.CacheHit, 0, 0)
	p.pace(ctx, !res.Live)
	rec.SecondaryStatus = res.Status
	// Recorded even on blocked or HTTP-error outcomes: the audit trail
	// keeps the slug that answered, not just successful ones.
	rec.SecondaryResolved = res.Resolved

	if !res.OK() {
		rec.GovernanceFlags = lineage.Tag(false, true)
		p.logger.Info("secondary fallback failed",
			zap.String("seed", seed.Concat()), zap.String("status", res.Status))
		return
	}

	rec.SelectedPublication = seed.Dotted()
	rec.SelectedSource = lineage.SourceSecondarySeed
	rec.StructureStatus = StructureOK
	rec.ClaimGateReason = ReasonSecondaryText
	rec.ClaimsSource = model.ClaimsSourceSecondary
	rec.GovernanceFlags = lineage.Tag(true, false)
	if p.textPaths != nil {
		rec.ClaimsTextPath = p.textPaths.Path(seed.Concat())
	}
	p.segmentInto(res.Text, rec, true)

	p.logger.Info("secondary claims selected",
		zap.String("seed", seed.Concat()),
		zap.String("resolved", res.Resolved),
		zap.String("status", res.Status))
}

// segmentInto runs the claims segmenter over retrieved text and fills
// the record's canonical claim fields. Secondary text carries the
// segmenter's claim count; primary counts come from the validator.
func (p *Pipeline) segmentInto(text string, rec *model.ExtractionRecord, countFromSegments bool) {
	if text == "" {
		return
	}
	seg := segment.Extract(text)
	rec.FirstClaim = seg.FirstClaim
	rec.ClaimSet = seg.ClaimSet
	rec.ClaimsParseMethod = seg.Method
	rec.ClaimsQuality = seg.Quality
	rec.ClaimsQualityReason = seg.Reason
	rec.ClaimsLangHint = segment.DetectScripts(text).LanguageHint()
	if countFromSegments {
		rec.ClaimsCount = seg.Count
	}
}

func (p *Pipeline) pace(ctx context.Context, cacheHit bool) {
	if cacheHit {
		return
	}
	if err := p.pacer.Wait(ctx); err != nil {
		p.logger.Debug("pacing interrupted", zap.Error(err))
	}
}

func (p *Pipeline) audit(w *Writer, seed ident.Identifier, authority, target, status string, cacheHit bool, retries int, elapsed time.Duration) {
	if w == nil {
		return
	}
	entry := RunLogEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Seed:      seed.Concat(),
		Authority: authority,
		Target:    target,
		Status:    status,
		CacheHit:  cacheHit,
		Retries:   retries,
		ElapsedMS: elapsed.Milliseconds(),
	}
	if err := w.WriteRunLog(entry); err != nil {
		p.logger.Warn("run log append failed", zap.Error(err))
	}
}
