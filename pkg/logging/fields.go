package logging

import (
	"fmt"
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain field helpers

func Component(name string) Field {
	return String("component", name)
}

func Agent(name string) Field {
	return String("agent", name)
}

func EdgeKey(u, v int64, key int) Field {
	return String("edge", fmt.Sprintf("%d-%d:%d", u, v, key))
}

func Tick(n uint64) Field {
	return Field{Key: "tick", Value: n}
}

func Scenario(returnPeriod string, timeStep int) Field {
	return String("scenario", fmt.Sprintf("%s/%d", returnPeriod, timeStep))
}

func Count(n int) Field {
	return Int("count", n)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Risk(r float64) Field {
	return Float64("risk", r)
}

func LocationID(id string) Field {
	return String("location_id", id)
}
