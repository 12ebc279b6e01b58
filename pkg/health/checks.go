package health

import (
	"fmt"
	"os"
	"runtime"
)

// GraphCheck reports whether the road graph is loaded and how big it is.
func GraphCheck(state func() (loaded bool, nodes, edges int)) CheckFunc {
	return func() Check {
		check := Check{Name: "graph", Details: make(map[string]any)}

		loaded, nodes, edges := state()
		check.Details["loaded"] = loaded
		check.Details["nodes"] = nodes
		check.Details["edges"] = edges

		if !loaded {
			check.Status = StatusUnhealthy
			check.Message = "Road graph not loaded"
		} else {
			check.Status = StatusHealthy
			check.Message = fmt.Sprintf("%d nodes, %d edges", nodes, edges)
		}
		return check
	}
}

// RasterCheck verifies the flood-depth bundle directory exists. A missing
// directory degrades fusion but does not stop the service.
func RasterCheck(dir string) CheckFunc {
	return func() Check {
		check := Check{Name: "raster", Details: map[string]any{"dir": dir}}

		info, err := os.Stat(dir)
		switch {
		case err != nil:
			check.Status = StatusDegraded
			check.Message = "Depth grid directory unavailable"
		case !info.IsDir():
			check.Status = StatusDegraded
			check.Message = "Depth grid path is not a directory"
		default:
			check.Status = StatusHealthy
			check.Message = "Depth grids available"
		}
		return check
	}
}

// SimulationCheck reports the tick loop state. A stopped simulation is normal
// between scenarios, never unhealthy.
func SimulationCheck(state func() (running bool, tickCount uint64)) CheckFunc {
	return func() Check {
		check := Check{Name: "simulation", Details: make(map[string]any)}

		running, ticks := state()
		check.Details["running"] = running
		check.Details["tick_count"] = ticks
		check.Status = StatusHealthy
		if running {
			check.Message = "Simulation running"
		} else {
			check.Message = "Simulation idle"
		}
		return check
	}
}

// SchedulerCheck flags repeated upstream refresh failures.
func SchedulerCheck(state func() (lastError string, failed, total uint64)) CheckFunc {
	return func() Check {
		check := Check{Name: "scheduler", Details: make(map[string]any)}

		lastError, failed, total := state()
		check.Details["total_runs"] = total
		check.Details["failed_runs"] = failed

		if lastError != "" && failed > 0 && failed == total {
			check.Status = StatusDegraded
			check.Message = "All refresh runs failing: " + lastError
		} else {
			check.Status = StatusHealthy
			check.Message = "Refresh scheduler healthy"
		}
		return check
	}
}

// MailboxCheck flags agent mailboxes near capacity.
func MailboxCheck(depths func() map[string]int, capacity int) CheckFunc {
	return func() Check {
		check := Check{Name: "mailboxes", Details: make(map[string]any)}

		worst := 0
		for agent, depth := range depths() {
			check.Details[agent] = depth
			if depth > worst {
				worst = depth
			}
		}

		if capacity > 0 && worst*10 >= capacity*9 {
			check.Status = StatusDegraded
			check.Message = "Agent mailbox near capacity"
		} else {
			check.Status = StatusHealthy
			check.Message = "Mailboxes draining"
		}
		return check
	}
}

// MemoryCheck flags high heap usage relative to the OS reservation.
func MemoryCheck() CheckFunc {
	return func() Check {
		check := Check{Name: "memory", Details: make(map[string]any)}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		check.Details["alloc_bytes"] = mem.Alloc
		check.Details["sys_bytes"] = mem.Sys

		if float64(mem.Alloc) > 0.9*float64(mem.Sys) {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}
