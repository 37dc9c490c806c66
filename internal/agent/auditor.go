package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mgpai22/verbatim/internal/llm"
	"github.com/mgpai22/verbatim/internal/logging"
	"github.com/mgpai22/verbatim/internal/segment"
	"github.com/mgpai22/verbatim/internal/validate"
)

// Auditor runs the acoustic check in two calls. The listener hears the audio
// and proposes claims; the reviewer, which may be a text-only model from
// another vendor, decides which claims stand.
type Auditor struct {
	listener llm.Model
	reviewer llm.Model
	logger   *logging.Logger
}

// reviewer may be nil, in which case every proposed claim is upheld
func NewAuditor(listener, reviewer llm.Model, logger *logging.Logger) *Auditor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Auditor{listener: listener, reviewer: reviewer, logger: logger}
}

type AuditResult struct {
	Claims   []Claim `json:"claims"`
	Reviewed bool    `json:"reviewed"`
}

type reviewEntry struct {
	ID     int    `json:"id"`
	Upheld bool   `json:"upheld"`
	Reason string `json:"reason"`
}

func (a *Auditor) Audit(
	ctx context.Context,
	audioPath string,
	doc *segment.Document,
	report *validate.Report,
) (*AuditResult, error) {
	if !a.listener.SupportsAudio() {
		return nil, fmt.Errorf("listener: %w", llm.ErrAudioUnsupported)
	}

	segmentsJSON, err := segment.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode segments: %w", err)
	}

	reply, err := a.listener.Generate(ctx, llm.Request{
		System:    listenerSystem,
		Prompt:    buildListenerPrompt(segmentsJSON),
		AudioPath: audioPath,
		JSON:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("listener call failed: %w", err)
	}

	var claims []Claim
	if err := decodeResponse(reply, claimsSchema, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse listener claims: %w", err)
	}
	for i := range claims {
		claims[i].ID = i + 1
		claims[i].Upheld = true
	}
	a.logger.Infow("listener proposed claims", "count", len(claims))

	result := &AuditResult{Claims: claims}
	if a.reviewer != nil && len(claims) > 0 {
		if err := a.review(ctx, segmentsJSON, report, claims); err != nil {
			return nil, err
		}
		result.Reviewed = true
	}

	Reconcile(report, result.Claims)
	return result, nil
}

func (a *Auditor) review(
	ctx context.Context,
	segmentsJSON []byte,
	report *validate.Report,
	claims []Claim,
) error {
	claimsJSON, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode claims: %w", err)
	}
	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	reply, err := a.reviewer.Generate(ctx, llm.Request{
		System: reviewerSystem,
		Prompt: buildReviewerPrompt(segmentsJSON, claimsJSON, reportJSON),
		JSON:   true,
	})
	if err != nil {
		return fmt.Errorf("reviewer call failed: %w", err)
	}

	var entries []reviewEntry
	if err := decodeResponse(reply, reviewSchema, &entries); err != nil {
		return fmt.Errorf("failed to parse review: %w", err)
	}

	byID := make(map[int]reviewEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	upheld := 0
	for i := range claims {
		e, ok := byID[claims[i].ID]
		if !ok {
			claims[i].Upheld = false
			claims[i].ReviewNote = "not addressed by reviewer"
			continue
		}
		claims[i].Upheld = e.Upheld
		claims[i].ReviewNote = e.Reason
		if e.Upheld {
			upheld++
		}
	}
	a.logger.Infow("reviewer finished", "upheld", upheld, "rejected", len(claims)-upheld)

	return nil
}
