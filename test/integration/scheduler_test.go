//go:build integration

package integration

import (
	"testing"
	"time"
)

func TestScheduler_PublishesDueJobs(t *testing.T) {
	cfg := LoadCfg()
	WaitTCP(t, "kafka", cfg.KafkaBootstrap, 60*time.Second)
	WaitHealthz(t, cfg.SchedHealthURL, 90*time.Second)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	monitorID := RandID()
	SeedMonitor(t, db, monitorID, RandID(), "http://http-echo:80/", 60)
	SeedDueJob(t, db, "it-sched-due", monitorID, 60)

	got, ok := ReadOneJSON(t, cfg.KafkaBootstrap, cfg.ProbeTopic, "it-sched-1", 30*time.Second,
		func(ev *probeRequested) bool { return ev.MonitorID == monitorID })
	if !ok {
		t.Fatal("no probe request published for the due job")
	}
	if got.JobKey != "it-sched-due" {
		t.Fatalf("wrong job key: %q", got.JobKey)
	}

	// The claim advanced next_run; the job must not be due again immediately.
	var due int
	if err := db.QueryRow(`SELECT count(1) FROM jobs WHERE key = 'it-sched-due' AND next_run <= now()`).Scan(&due); err != nil {
		t.Fatalf("read job: %v", err)
	}
	if due != 0 {
		t.Fatal("job still due after being claimed")
	}
}
