package analytics

import (
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/biolinq/biolinq/internal/geo"
	"github.com/biolinq/biolinq/internal/metrics"
	"github.com/biolinq/biolinq/internal/models"
)

// Event is a raw view or click as seen by an HTTP handler.
type Event struct {
	BiolinkID  string
	LinkID     string
	Kind       string
	OccurredAt time.Time
	IP         string
	UserAgent  string
	Referer    string
}

// Collector buffers events and writes them to the visit log in batches.
type Collector struct {
	ch   chan Event
	stop chan struct{}
	db   *sql.DB
	geo  *geo.Reader
	log  zerolog.Logger
	done chan struct{}
}

func NewCollector(db *sql.DB, geoReader *geo.Reader, log zerolog.Logger, bufferSize int, flushInterval time.Duration) *Collector {
	c := &Collector{
		ch:   make(chan Event, bufferSize),
		stop: make(chan struct{}),
		db:   db,
		geo:  geoReader,
		log:  log.With().Str("component", "analytics").Logger(),
		done: make(chan struct{}),
	}
	go c.run(flushInterval)
	return c
}

// Push queues an event without blocking. Drops the event if the buffer is full.
func (c *Collector) Push(e Event) {
	select {
	case c.ch <- e:
	default:
		metrics.VisitsDropped.Inc()
	}
}

// Shutdown flushes remaining events and returns.
func (c *Collector) Shutdown() {
	close(c.stop)
	<-c.done
}

func (c *Collector) run(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.stop:
			c.flush()
			return
		}
	}
}

func (c *Collector) drain() []Event {
	var batch []Event
	for {
		select {
		case e := <-c.ch:
			batch = append(batch, e)
		default:
			return batch
		}
	}
}

func (c *Collector) flush() {
	batch := c.drain()
	if len(batch) == 0 {
		return
	}

	visits := make([]models.Visit, 0, len(batch))
	for _, e := range batch {
		visits = append(visits, c.enrich(e))
	}

	if err := models.BatchInsertVisits(c.db, visits); err != nil {
		c.log.Error().Err(err).Int("count", len(visits)).Msg("flush visits")
		return
	}
	metrics.VisitsFlushed.Add(float64(len(visits)))
	c.log.Debug().Int("count", len(visits)).Msg("flushed visits")
}

func (c *Collector) enrich(e Event) models.Visit {
	agent := ParseAgent(e.UserAgent)
	return models.Visit{
		BiolinkID:     e.BiolinkID,
		LinkID:        e.LinkID,
		Kind:          e.Kind,
		OccurredAt:    e.OccurredAt,
		RefererDomain: RefererDomain(e.Referer),
		Country:       c.geo.Lookup(e.IP).Country,
		Browser:       agent.Browser,
		OS:            agent.OS,
		DeviceType:    agent.Device,
	}
}

// RefererDomain returns the lowercase host of a Referer header without a
// leading "www.".
func RefererDomain(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
