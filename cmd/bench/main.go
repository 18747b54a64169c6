package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/biolinq/biolinq/internal/db"
	"github.com/biolinq/biolinq/internal/models"
)

const (
	biolinkCount    = 40
	linksPerBiolink = 5
)

// fixture is what the benchmark can request once the database is seeded.
type fixture struct {
	usernames []string
	linkIDs   []string
}

// target picks the next request path and the status a healthy server answers.
type target func(rng *rand.Rand) (path string, want int)

func targetFor(name string, fx fixture) (target, error) {
	switch name {
	case "go":
		return func(rng *rand.Rand) (string, int) {
			return "/go/" + fx.linkIDs[rng.Intn(len(fx.linkIDs))], http.StatusFound
		}, nil
	case "profile":
		return func(rng *rand.Rand) (string, int) {
			return "/" + fx.usernames[rng.Intn(len(fx.usernames))], http.StatusOK
		}, nil
	}
	return nil, fmt.Errorf("unknown target %q (want go or profile)", name)
}

type stats struct {
	latencies []time.Duration
	errors    int64
}

type runner struct {
	client   *http.Client
	baseURL  string
	next     target
	deadline time.Time
	requests atomic.Int64
}

func (r *runner) worker(rng *rand.Rand) stats {
	var s stats
	for time.Now().Before(r.deadline) {
		path, want := r.next(rng)

		start := time.Now()
		resp, err := r.client.Get(r.baseURL + path)
		elapsed := time.Since(start)
		r.requests.Add(1)

		if err != nil {
			s.errors++
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode != want {
			s.errors++
			continue
		}
		s.latencies = append(s.latencies, elapsed)
	}
	return s
}

func main() {
	concurrency := flag.Int("c", 50, "number of concurrent workers")
	duration := flag.Duration("d", 10*time.Second, "benchmark duration")
	targetName := flag.String("target", "go", "what to request: go (click redirects) or profile (public pages)")
	flag.Parse()

	fmt.Println("BioLinq Benchmark")
	fmt.Println("=================")

	tmpDir, err := os.MkdirTemp("", "biolinq-bench-*")
	if err != nil {
		fatal("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	fmt.Printf("Building server...     ")
	binPath := filepath.Join(tmpDir, "biolinq-server")
	build := exec.Command("go", "build", "-o", binPath, "./cmd/server")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		fatal("build server: %v", err)
	}
	fmt.Println("done")

	fmt.Printf("Seeding database...    ")
	dbPath := filepath.Join(tmpDir, "biolinq.db")
	fx, err := seed(dbPath)
	if err != nil {
		fatal("seed: %v", err)
	}
	fmt.Printf("done (%d biolinks, %d links)\n", len(fx.usernames), len(fx.linkIDs))

	next, err := targetFor(*targetName, fx)
	if err != nil {
		fatal("%v", err)
	}

	fmt.Printf("Starting server...     ")
	baseURL, stop, err := startServer(binPath, dbPath, filepath.Join(tmpDir, "server.log"))
	if err != nil {
		fatal("start server: %v", err)
	}
	defer stop()
	fmt.Printf("ready (%s)\n", baseURL)

	fmt.Printf("Benchmarking...        /%s, %s, %d workers\n", *targetName, *duration, *concurrency)

	r := &runner{
		client: &http.Client{
			Transport: &http.Transport{MaxIdleConnsPerHost: *concurrency},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL:  baseURL,
		next:     next,
		deadline: time.Now().Add(*duration),
	}

	done := make(chan struct{})
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		showProgress(&r.requests, *duration, done)
	}()

	rng := rand.New(rand.NewSource(42))
	var (
		mu    sync.Mutex
		total stats
		wg    sync.WaitGroup
	)
	for range *concurrency {
		workerRng := rand.New(rand.NewSource(rng.Int63()))
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := r.worker(workerRng)
			mu.Lock()
			total.latencies = append(total.latencies, s.latencies...)
			total.errors += s.errors
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(done)
	<-progressDone

	report(total, *duration)
}

func report(s stats, d time.Duration) {
	n := int64(len(s.latencies)) + s.errors
	slices.Sort(s.latencies)

	fmt.Println()
	fmt.Println("Results")
	fmt.Println("-------")
	fmt.Printf("Requests:    %s\n", humanize.Comma(n))
	fmt.Printf("Errors:      %s\n", humanize.Comma(s.errors))
	fmt.Printf("RPS:         %s\n", humanize.CommafWithDigits(float64(n)/d.Seconds(), 1))
	for _, p := range []int{50, 95, 99} {
		if len(s.latencies) == 0 {
			break
		}
		fmt.Printf("Latency p%d: %s\n", p, fmtDur(percentile(s.latencies, p)))
	}
}

// seed writes biolinks and links straight through the models layer.
func seed(dbPath string) (fixture, error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return fixture{}, err
	}
	defer database.Close()

	ctx := context.Background()
	var fx fixture
	for i := range biolinkCount {
		username := fmt.Sprintf("bench-%03d", i+1)
		ids, err := seedBiolink(ctx, database, username)
		if err != nil {
			return fixture{}, fmt.Errorf("%s: %w", username, err)
		}
		fx.usernames = append(fx.usernames, username)
		fx.linkIDs = append(fx.linkIDs, ids...)
	}
	return fx, nil
}

func seedBiolink(ctx context.Context, q *sql.DB, username string) ([]string, error) {
	u := &models.User{Email: username + "@example.com"}
	if err := models.CreateUser(ctx, q, u); err != nil {
		return nil, err
	}
	b := &models.Biolink{UserID: u.ID, Username: username}
	if err := models.CreateBiolink(ctx, q, b); err != nil {
		return nil, err
	}
	ids := make([]string, 0, linksPerBiolink)
	for j := range linksPerBiolink {
		l := &models.Link{
			BiolinkID: b.ID,
			Title:     fmt.Sprintf("Link %d", j+1),
			URL:       fmt.Sprintf("https://example.com/%s/%d", username, j+1),
			Position:  j,
		}
		if err := models.CreateLink(ctx, q, l); err != nil {
			return nil, err
		}
		ids = append(ids, l.ID)
	}
	return ids, nil
}

// startServer runs the built binary against dbPath with tracking flushes and
// rate limits pushed out of the way, and waits for /healthz.
func startServer(binPath, dbPath, logPath string) (string, func(), error) {
	port, err := freePort()
	if err != nil {
		return "", nil, fmt.Errorf("find free port: %w", err)
	}
	srvLog, err := os.Create(logPath)
	if err != nil {
		return "", nil, err
	}

	srv := exec.Command(binPath)
	srv.Stdout = srvLog
	srv.Stderr = srvLog
	srv.Env = append(os.Environ(),
		"BIOLINQ_SESSION_SECRET=bench",
		"BIOLINQ_LOG_LEVEL=warn",
		"BIOLINQ_APP_DOMAINS=biolinq.page",
		fmt.Sprintf("BIOLINQ_PORT=%d", port),
		fmt.Sprintf("BIOLINQ_DB_PATH=%s", dbPath),
		"BIOLINQ_FLUSH_INTERVAL=1h",
		"BIOLINQ_BUFFER_SIZE=500000",
		"BIOLINQ_RATE_LIMIT=100000000",
	)
	if err := srv.Start(); err != nil {
		srvLog.Close()
		return "", nil, err
	}
	stop := func() {
		srv.Process.Signal(syscall.SIGINT)
		srv.Wait()
		srvLog.Close()
	}

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	if err := waitReady(baseURL+"/healthz", 5*time.Second); err != nil {
		stop()
		return "", nil, fmt.Errorf("server not ready: %w", err)
	}
	return baseURL, stop, nil
}

func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

func waitReady(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 500 * time.Millisecond}
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("timeout after %s", timeout)
}

func percentile(sorted []time.Duration, p int) time.Duration {
	idx := min(len(sorted)*p/100, len(sorted)-1)
	return sorted[idx]
}

// showProgress redraws a progress line until done is closed.
func showProgress(requests *atomic.Int64, d time.Duration, done <-chan struct{}) {
	start := time.Now()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			printProgress(d, d, requests.Load())
			fmt.Println()
			return
		case <-ticker.C:
			printProgress(min(time.Since(start), d), d, requests.Load())
		}
	}
}

func printProgress(elapsed, total time.Duration, reqs int64) {
	const width = 30
	filled := int(float64(width) * elapsed.Seconds() / total.Seconds())
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	rps := 0.0
	if elapsed > 0 {
		rps = float64(reqs) / elapsed.Seconds()
	}
	fmt.Printf("\r  [%s] %.0fs/%.0fs  %s reqs  %s rps",
		bar, elapsed.Seconds(), total.Seconds(), humanize.Comma(reqs), humanize.Comma(int64(rps)))
}

func fmtDur(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", args...)
	os.Exit(1)
}
