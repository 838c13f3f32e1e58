package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediarelay/internal/domain"
	"mediarelay/internal/infra"
	"mediarelay/internal/progress"
)

const barWidth = 30

func main() {
	_ = godotenv.Load()

	defaultBase := os.Getenv("PUBLIC_BASE_URL")
	if defaultBase == "" {
		defaultBase = "http://localhost:8080"
	}

	jobID := flag.String("job", "", "job id returned by POST /generate")
	base := flag.String("base", defaultBase, "relay base URL")
	source := flag.String("source", progress.SourceJobs, "endpoint to poll: results, status or jobs")
	estimate := flag.Duration("estimate", progress.DefaultEstimate, "expected run duration")
	interval := flag.Duration("interval", progress.DefaultPollInterval, "poll interval")
	flag.Parse()

	if strings.TrimSpace(*jobID) == "" {
		fmt.Fprintln(os.Stderr, "watch: -job is required")
		flag.Usage()
		os.Exit(2)
	}

	logger := infra.NewLogger(getEnv("APP_ENV", "production"))
	src, err := progress.NewHTTPSource(progress.HTTPSourceOptions{BaseURL: *base, Kind: *source})
	if err != nil {
		logger.Fatal().Err(err).Msg("watch: invalid source")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &renderer{out: os.Stdout, title: cases.Title(language.English), estimate: *estimate}
	snap, err := progress.Watch(ctx, src, *jobID, progress.WatchOptions{
		Estimate:     *estimate,
		PollInterval: *interval,
		Logger:       &logger,
		OnUpdate:     r.line,
	})
	fmt.Fprintln(os.Stdout)
	if err != nil {
		logger.Warn().Err(err).Str("job_id", *jobID).Msg("watch: stopped before the job finished")
		os.Exit(1)
	}
	r.summary(snap)
	if snap.State != domain.JobStateCompleted {
		os.Exit(1)
	}
}

type renderer struct {
	out      io.Writer
	title    cases.Caser
	estimate time.Duration
}

func (r *renderer) line(s progress.Snapshot) {
	filled := s.Progress * barWidth / 100
	bar := strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)
	fmt.Fprintf(r.out, "\r\033[K[%s] %3d%%  %-11s %s  %s / %s",
		bar, s.Progress, r.title.String(string(s.State)), s.Label, clock(s.Elapsed), clock(r.estimate))
}

func (r *renderer) summary(s progress.Snapshot) {
	if s.Error != "" {
		fmt.Fprintf(r.out, "%s: %s\n", r.title.String(string(s.State)), s.Error)
		return
	}
	keys := make([]string, 0, len(s.Result))
	for k := range s.Result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(r.out, "%-12s %v\n", k+":", s.Result[k])
	}
}

func clock(d time.Duration) string {
	secs := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
