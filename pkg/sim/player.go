package sim

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/agents"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/fusion"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/mail"
)

const playerName = "sim_player"

// Event is one row of a scenario file: a payload destined for a collector
// once the simulation clock passes its offset.
type Event struct {
	OffsetSeconds float64
	Agent         string
	Payload       json.RawMessage
}

// LoadScenario reads a scenario CSV with the header
// "time_offset_seconds, agent, payload_json".
func LoadScenario(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseScenario(f)
}

// ParseScenario parses scenario events from a reader, sorted by offset.
func ParseScenario(r io.Reader) ([]Event, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = 3

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	events := make([]Event, 0, len(records)-1)
	for _, rec := range records[1:] { // skip header
		offset, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			continue
		}
		events = append(events, Event{
			OffsetSeconds: offset,
			Agent:         rec[1],
			Payload:       json.RawMessage(rec[2]),
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OffsetSeconds < events[j].OffsetSeconds
	})
	return events, nil
}

// Player replays scenario events into the collector mailboxes. Each event is
// delivered exactly once, when the simulation clock first exceeds its offset.
type Player struct {
	router *mail.Router
	events []Event
	next   int
	logger logging.Logger
}

// NewPlayer creates a player over pre-sorted events.
func NewPlayer(router *mail.Router, events []Event, logger logging.Logger) *Player {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Player{
		router: router,
		events: events,
		logger: logger.With(logging.Component("sim_player")),
	}
}

// Remaining returns the number of undelivered events.
func (p *Player) Remaining() int { return len(p.events) - p.next }

// Rewind restarts the scenario from the beginning.
func (p *Player) Rewind() { p.next = 0 }

// DeliverDue sends every event whose offset has passed. Malformed payloads
// are logged and skipped; they never stall the stream.
func (p *Player) DeliverDue(elapsed time.Duration) int {
	delivered := 0
	for p.next < len(p.events) && elapsed.Seconds() > p.events[p.next].OffsetSeconds {
		ev := p.events[p.next]
		p.next++
		if p.deliver(ev) {
			delivered++
		}
	}
	return delivered
}

func (p *Player) deliver(ev Event) bool {
	var content mail.Content
	switch ev.Agent {
	case agents.FloodAgentName:
		var batch map[string]fusion.ReadingPayload
		if err := json.Unmarshal(ev.Payload, &batch); err != nil {
			p.logger.Warn("skipping malformed flood event payload", logging.Error(err))
			return false
		}
		content = mail.Content{Kind: agents.KindFloodDataBatch, Data: batch}

	case agents.ScoutAgentName:
		var batch []fusion.ScoutPayload
		if err := json.Unmarshal(ev.Payload, &batch); err != nil {
			p.logger.Warn("skipping malformed scout event payload", logging.Error(err))
			return false
		}
		content = mail.Content{Kind: agents.KindScoutReportBatch, Data: batch}

	default:
		p.logger.Warn("skipping event for unknown agent",
			logging.String("agent", ev.Agent))
		return false
	}

	msg := mail.NewMessage(mail.Inform, playerName, ev.Agent, content)
	if err := p.router.Send(msg, mail.DefaultSendTimeout); err != nil {
		p.logger.Error("failed to deliver scenario event",
			logging.String("agent", ev.Agent), logging.Error(err))
		return false
	}
	return true
}
