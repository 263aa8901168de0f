package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zulandar/showroom/internal/models"
	"gorm.io/gorm"
)

// digestListLimit caps the leads listed by name in one digest.
const digestListLimit = 10

// Report summarizes the leads captured in a period.
type Report struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Total       int
	BySource    map[string]int
	Recent      []models.Lead // newest first, at most digestListLimit
}

// DefaultDigestWindow is how far back a digest looks.
const DefaultDigestWindow = 24 * time.Hour

// Digest posts a periodic lead summary on a cron schedule.
type Digest struct {
	db       *gorm.DB
	notifier Notifier
	cron     string
	window   time.Duration
	now      func() time.Time
}

// DigestOpts holds parameters for creating a Digest.
type DigestOpts struct {
	DB       *gorm.DB
	Notifier Notifier
	Cron     string        // 5-field expression, e.g. "0 8 * * 1-5"
	Window   time.Duration // defaults to 24h
	Now      func() time.Time
}

// NewDigest creates a Digest.
func NewDigest(opts DigestOpts) (*Digest, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("notify: digest: db is required")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("notify: digest: notifier is required")
	}
	if err := ValidateCron(opts.Cron); err != nil {
		return nil, fmt.Errorf("notify: digest: cron %q: %w", opts.Cron, err)
	}
	d := &Digest{
		db:       opts.DB,
		notifier: opts.Notifier,
		cron:     opts.Cron,
		window:   opts.Window,
		now:      opts.Now,
	}
	if d.window <= 0 {
		d.window = DefaultDigestWindow
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// BuildReport counts leads created in [since, until).
func BuildReport(ctx context.Context, db *gorm.DB, since, until time.Time) (*Report, error) {
	report := &Report{PeriodStart: since, PeriodEnd: until, BySource: map[string]int{}}

	var rows []struct {
		Source string
		Count  int
	}
	if err := db.WithContext(ctx).Model(&models.Lead{}).
		Select("source, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", since, until).
		Group("source").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("notify: digest: count leads: %w", err)
	}
	for _, r := range rows {
		report.BySource[r.Source] = r.Count
		report.Total += r.Count
	}

	if err := db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", since, until).
		Order("created_at DESC").Order("id DESC").
		Limit(digestListLimit).
		Find(&report.Recent).Error; err != nil {
		return nil, fmt.Errorf("notify: digest: recent leads: %w", err)
	}
	return report, nil
}

// FormatReport renders a report as a digest alert.
func FormatReport(r *Report) Alert {
	var b strings.Builder
	for i, l := range r.Recent {
		if i > 0 {
			b.WriteString("\n")
		}
		name := orDash(l.Name)
		if l.Company != "" {
			name += " (" + l.Company + ")"
		}
		fmt.Fprintf(&b, "- %s: %s", name, preview(firstLine(l.Need)))
	}
	if more := r.Total - len(r.Recent); more > 0 {
		fmt.Fprintf(&b, "\n...and %d more", more)
	}

	a := Alert{
		Kind:  KindDigest,
		Title: fmt.Sprintf("Lead digest: %d new since %s", r.Total, r.PeriodStart.UTC().Format("2006-01-02 15:04 MST")),
		Body:  b.String(),
		Color: ColorInfo,
	}
	for _, src := range []string{models.SourceScripted, models.SourceArchive, models.SourceManual} {
		a.Fields = append(a.Fields, Field{Name: src, Value: fmt.Sprint(r.BySource[src]), Short: true})
	}
	return a
}

// Fire builds and sends one digest covering the last window. Nothing is
// sent when no leads were captured.
func (d *Digest) Fire(ctx context.Context) error {
	until := d.now()
	report, err := BuildReport(ctx, d.db, until.Add(-d.window), until)
	if err != nil {
		return err
	}
	if report.Total == 0 {
		return nil
	}
	if err := d.notifier.Notify(ctx, FormatReport(report)); err != nil {
		return fmt.Errorf("notify: digest: send: %w", err)
	}
	return nil
}

// Run fires the digest on schedule until ctx is cancelled.
func (d *Digest) Run(ctx context.Context) {
	next := nextCronDuration(d.cron, d.now())
	if next <= 0 {
		return
	}
	timer := time.NewTimer(next)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := d.Fire(ctx); err != nil {
				log.Warn().Err(err).Str("component", "digest").Msg("lead digest failed")
			}
			if next := nextCronDuration(d.cron, d.now()); next > 0 {
				timer.Reset(next)
			}
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
