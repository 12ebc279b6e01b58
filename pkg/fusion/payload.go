package fusion

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
)

var validate = validator.New()

// ReadingPayload is the wire shape of one entry in an INFORM flood_data_batch.
type ReadingPayload struct {
	FloodDepth            *float64  `json:"flood_depth" validate:"omitempty,gte=0"`
	Rainfall1h            float64   `json:"rainfall_1h" validate:"gte=0"`
	Rainfall24h           float64   `json:"rainfall_24h" validate:"gte=0"`
	RiverLevelM           *float64  `json:"river_level_m"`
	AlertLevelM           *float64  `json:"alert_level_m"`
	AlarmLevelM           *float64  `json:"alarm_level_m"`
	CriticalLevelM        *float64  `json:"critical_level_m"`
	ReservoirWaterLevelM  *float64  `json:"reservoir_water_level_m"`
	NormalHighWaterLevelM *float64  `json:"normal_high_water_level_m"`
	Timestamp             time.Time `json:"timestamp" validate:"required"`
	SourceTag             string    `json:"source_tag"`
}

// ScoutPayload is the wire shape of one entry in an INFORM scout_report_batch.
type ScoutPayload struct {
	LocationName string     `json:"location_name"`
	Coordinates  *geo.Coord `json:"coordinates"`
	Severity     float64    `json:"severity" validate:"gte=0,lte=1"`
	Confidence   float64    `json:"confidence" validate:"gte=0,lte=1"`
	ReportKind   string     `json:"report_kind" validate:"required,oneof=rain_report flood blockage clear"`
	Timestamp    time.Time  `json:"timestamp" validate:"required"`
	Body         string     `json:"body"`
}

// ParseReadingBatch validates a flood data batch and converts it to domain
// readings. Invalid entries are dropped with a warning; they never abort the
// batch.
func ParseReadingBatch(batch map[string]ReadingPayload, logger logging.Logger) []*HazardReading {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	out := make([]*HazardReading, 0, len(batch))
	for locationID, p := range batch {
		if locationID == "" {
			logger.Warn("dropping reading with empty location id")
			continue
		}
		if err := validate.Struct(p); err != nil {
			logger.Warn("dropping invalid hazard reading",
				logging.LocationID(locationID), logging.Error(err))
			continue
		}

		r := &HazardReading{
			LocationID:     locationID,
			Timestamp:      p.Timestamp.UTC(),
			Rainfall1hMM:   p.Rainfall1h,
			Rainfall24hMM:  p.Rainfall24h,
			RiverLevelM:    p.RiverLevelM,
			AlertLevelM:    p.AlertLevelM,
			AlarmLevelM:    p.AlarmLevelM,
			CriticalLevelM: p.CriticalLevelM,
			FloodDepthM:    p.FloodDepth,
			SourceTag:      p.SourceTag,
		}
		if p.ReservoirWaterLevelM != nil && p.NormalHighWaterLevelM != nil {
			dev := *p.ReservoirWaterLevelM - *p.NormalHighWaterLevelM
			r.DamDeviationM = &dev
		}
		r.RiskScore = ClassifyReading(r)
		out = append(out, r)
	}
	return out
}

// ParseScoutBatch validates a scout report batch and converts it to domain
// reports. Reports with invalid coordinates are kept but treated as
// ungeocoded; otherwise-invalid entries are dropped with a warning.
func ParseScoutBatch(batch []ScoutPayload, logger logging.Logger) []*ScoutReport {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	out := make([]*ScoutReport, 0, len(batch))
	for i, p := range batch {
		if err := validate.Struct(p); err != nil {
			logger.Warn("dropping invalid scout report",
				logging.Int("index", i), logging.Error(err))
			continue
		}

		r := &ScoutReport{
			ReportID:     uuid.NewString(),
			Timestamp:    p.Timestamp.UTC(),
			Body:         p.Body,
			LocationName: p.LocationName,
			Severity:     p.Severity,
			Confidence:   p.Confidence,
			Kind:         ReportKind(p.ReportKind),
		}
		if p.Coordinates != nil {
			if p.Coordinates.Valid() {
				c := *p.Coordinates
				r.Coordinates = &c
			} else {
				logger.Warn("scout report has out-of-range coordinates, treating as ungeocoded",
					logging.Int("index", i))
			}
		}
		out = append(out, r)
	}
	return out
}
