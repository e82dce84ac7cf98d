package handlers

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/clipforge/clipforge/internal/database"
)

var startTime = time.Now()

// HealthCheck reports service liveness plus basic host pressure so a probe
// can tell "up" from "up but about to fall over".
func HealthCheck(c *gin.Context) {
	status := "healthy"

	dbStatus := "ok"
	if db := database.GetDB(); db != nil {
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			dbStatus = "unreachable"
			status = "degraded"
		}
	} else {
		dbStatus = "uninitialized"
		status = "degraded"
	}

	system := gin.H{}
	if vm, err := mem.VirtualMemory(); err == nil {
		system["memory_used_percent"] = vm.UsedPercent
	}
	if avg, err := load.Avg(); err == nil {
		system["load_1m"] = avg.Load1
	}
	if wd, err := os.Getwd(); err == nil {
		if usage, err := disk.Usage(wd); err == nil {
			system["disk_used_percent"] = usage.UsedPercent
			if usage.UsedPercent > 95 {
				status = "degraded"
			}
		}
	}
	system["goroutines"] = runtime.NumGoroutine()

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"database":  dbStatus,
		"uptime":    time.Since(startTime).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"system":    system,
	})
}
