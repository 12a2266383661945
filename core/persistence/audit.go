package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/asaidimu/go-hobbies/core/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AuditFinding describes a stored entry that no longer satisfies its schema.
type AuditFinding struct {
	EntryID string            `json:"entry_id"`
	Title   string            `json:"title"`
	Errors  map[string]string `json:"errors"`
	Issues  []schema.Issue    `json:"issues"`
}

// AuditReport is the result of revalidating every entry of a hobby type.
type AuditReport struct {
	HobbyTypeID string         `json:"hobby_type_id"`
	Checked     int            `json:"checked"`
	Rejected    []AuditFinding `json:"rejected"`
}

// Audit revalidates the stored entries of a hobby type against its current
// schema. Schema edits never touch stored entries, so this is how drift is
// found. Nothing is modified. Findings are ordered by title.
func (p *Persistence) Audit(ctx context.Context, owner, hobbyTypeID string) (*AuditReport, error) {
	result, err := p.withEventEmission(opAudit, owner, hobbyTypeID, nil, func() (any, error) {
		ht, err := p.ownedHobbyType(ctx, p.store, owner, hobbyTypeID)
		if err != nil {
			return nil, err
		}
		v, err := p.registry.Validator(ctx, p.store, ht)
		if err != nil {
			return nil, err
		}
		entries, err := p.store.ListEntries(ctx, EntryFilter{Owner: owner, HobbyTypeID: hobbyTypeID})
		if err != nil {
			return nil, err
		}

		report := &AuditReport{HobbyTypeID: hobbyTypeID, Checked: len(entries), Rejected: []AuditFinding{}}
		var mu sync.Mutex

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.auditWorkers)
		for _, e := range entries {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res := v.Validate(e.Data)
				p.metrics.ObserveValidation(ht.Name, res)
				if len(res.Issues) == 0 {
					return nil
				}
				errs := res.Errors
				if errs == nil {
					errs = make(map[string]string, len(res.Issues))
					for _, issue := range res.Issues {
						if _, taken := errs[issue.Path]; !taken {
							errs[issue.Path] = issue.Message
						}
					}
				}
				mu.Lock()
				report.Rejected = append(report.Rejected, AuditFinding{
					EntryID: e.ID,
					Title:   e.Title,
					Errors:  errs,
					Issues:  res.Issues,
				})
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		sort.Slice(report.Rejected, func(i, j int) bool {
			a, b := report.Rejected[i], report.Rejected[j]
			if a.Title != b.Title {
				return a.Title < b.Title
			}
			return a.EntryID < b.EntryID
		})
		p.logger.Info("Audit complete",
			zap.String("hobby_type", hobbyTypeID),
			zap.Int("checked", report.Checked),
			zap.Int("rejected", len(report.Rejected)))
		return report, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*AuditReport), nil
}
