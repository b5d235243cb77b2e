package service

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/xcellar/xcellar/internal/repository"
)

// SystemSnapshot is the operator view of the host and process.
type SystemSnapshot struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemTotal      uint64  `json:"mem_total"`
	MemUsed       uint64  `json:"mem_used"`
	MemPercent    float64 `json:"mem_percent"`
	DiskTotal     uint64  `json:"disk_total"`
	DiskUsed      uint64  `json:"disk_used"`
	DiskPercent   float64 `json:"disk_percent"`
	Load1         float64 `json:"load1"`
	Load5         float64 `json:"load5"`
	Load15        float64 `json:"load15"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
	CollectedAt   int64   `json:"collected_at"`
}

// PlatformStats summarizes the marketplace for operator dashboards.
type PlatformStats struct {
	Users        int64            `json:"users"`
	Couriers     int64            `json:"couriers"`
	OrdersByStat map[string]int64 `json:"orders_by_status"`
}

// statFetcher isolates the gopsutil calls so tests can substitute values.
type statFetcher struct {
	cpuPercent    func(interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory func() (*mem.VirtualMemoryStat, error)
	diskUsage     func(path string) (*disk.UsageStat, error)
	loadAvg       func() (*load.AvgStat, error)
	hostUptime    func() (uint64, error)
}

// OpsService serves operator-facing system and platform data.
type OpsService interface {
	System(ctx context.Context) (*SystemSnapshot, error)
	Stats(ctx context.Context) (*PlatformStats, error)
}

type opsService struct {
	users   repository.UserRepository
	orders  repository.OrderRepository
	fetcher statFetcher
}

// NewOpsService assembles host monitoring and platform stats.
func NewOpsService(users repository.UserRepository, orders repository.OrderRepository) OpsService {
	return &opsService{
		users:  users,
		orders: orders,
		fetcher: statFetcher{
			cpuPercent:    cpu.Percent,
			virtualMemory: mem.VirtualMemory,
			diskUsage:     disk.Usage,
			loadAvg:       load.Avg,
			hostUptime:    host.Uptime,
		},
	}
}

// System collects a best-effort snapshot. Individual probe failures leave
// their fields zero rather than failing the whole call.
func (s *opsService) System(_ context.Context) (*SystemSnapshot, error) {
	snapshot := &SystemSnapshot{
		Goroutines:  runtime.NumGoroutine(),
		CollectedAt: time.Now().Unix(),
	}
	if percents, err := s.fetcher.cpuPercent(0, false); err == nil && len(percents) > 0 {
		snapshot.CPUPercent = percents[0]
	}
	if v, err := s.fetcher.virtualMemory(); err == nil {
		snapshot.MemTotal = v.Total
		snapshot.MemUsed = v.Used
		snapshot.MemPercent = v.UsedPercent
	}
	if d, err := s.fetcher.diskUsage("/"); err == nil {
		snapshot.DiskTotal = d.Total
		snapshot.DiskUsed = d.Used
		snapshot.DiskPercent = d.UsedPercent
	}
	if l, err := s.fetcher.loadAvg(); err == nil {
		snapshot.Load1 = l.Load1
		snapshot.Load5 = l.Load5
		snapshot.Load15 = l.Load15
	}
	if u, err := s.fetcher.hostUptime(); err == nil {
		snapshot.UptimeSeconds = u
	}
	return snapshot, nil
}

func (s *opsService) Stats(ctx context.Context) (*PlatformStats, error) {
	users, err := s.users.CountByType(ctx, repository.UserTypeCustomer)
	if err != nil {
		return nil, err
	}
	couriers, err := s.users.CountByType(ctx, repository.UserTypeCourier)
	if err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	for _, status := range []string{
		repository.OrderPending, repository.OrderAvailable, repository.OrderAccepted,
		repository.OrderPickedUp, repository.OrderInTransit, repository.OrderDelivered,
		repository.OrderCancelled,
	} {
		st := status
		total, err := s.orders.Count(ctx, repository.OrderFilter{Status: &st})
		if err != nil {
			return nil, err
		}
		if total > 0 {
			counts[status] = total
		}
	}
	return &PlatformStats{Users: users, Couriers: couriers, OrdersByStat: counts}, nil
}
