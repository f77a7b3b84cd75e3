package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicware/session-scheduler/internal/config"
	"github.com/clinicware/session-scheduler/internal/db"
	"github.com/clinicware/session-scheduler/internal/notify"
	redisclient "github.com/clinicware/session-scheduler/internal/redis"
	"github.com/clinicware/session-scheduler/internal/scheduling"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("reminder-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running reminder worker in env=%s interval=%s lead=%s", cfg.Env, cfg.WorkerInterval, cfg.ReminderLead)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisDayLocker(rdb, cfg.LockTTL)
	dispatcher := notify.NewRedisDispatcher(rdb)
	svc := scheduling.NewService(repo, locker, dispatcher, scheduling.SchedulingPolicy{}, nil)

	// Run once at startup
	runOnce(rootCtx, svc, cfg.ReminderLead, cfg.WorkerInterval)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.ReminderLead, cfg.WorkerInterval)
		}
	}
}

// runOnce covers sessions starting between lead and lead+interval from now,
// so each tick picks up the band the previous tick left off at and no session
// is reminded twice.
func runOnce(ctx context.Context, svc *scheduling.Service, lead, interval time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	from := start.Add(lead)
	to := from.Add(interval)

	sent, err := svc.DispatchReminders(runCtx, from, to)
	if err != nil {
		log.Printf("reminder run error: %v", err)
		return
	}
	log.Printf("reminder run complete in %s, sent=%d", time.Since(start), sent)
}
