// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/avalekseev/msnab/internal/addressbook"
	"github.com/avalekseev/msnab/internal/config"
	"github.com/avalekseev/msnab/internal/deltas"
	"github.com/avalekseev/msnab/internal/logger"
	"github.com/avalekseev/msnab/internal/mclfile"
	"github.com/avalekseev/msnab/internal/remote"
	"github.com/avalekseev/msnab/internal/syncer"
	"github.com/avalekseev/msnab/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	cfg, err := config.GetStructuredConfig()
	if err != nil {
		logger.NewLogger("msnab").Fatal().Err(err).Msg("error getting configs")
	}

	log := newLogger(cfg)

	enc, err := mclfile.ParseEncoding(cfg.Storage.Encoding)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid storage encoding")
	}

	reg := mclfile.NewRegistry(afero.NewOsFs(), clockwork.NewRealClock(), log)

	account := strings.ToLower(cfg.Account.Email)
	contacts := addressbook.Load(reg,
		filepath.Join(cfg.Storage.Dir, account+".mcl"),
		enc, cfg.Account.Password, cfg.Storage.UseCache,
		&eventLogger{log: log}, log)
	store := deltas.Load(reg,
		filepath.Join(cfg.Storage.Dir, account+".deltas.mcl"),
		enc, cfg.Account.Password, cfg.Storage.UseCache, log)

	client, err := remote.NewHTTPContactClient(cfg.Remote.Address, cfg.Remote.RequestTimeout, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create contact client")
	}

	s := syncer.New(contacts, store, client, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Synchronize(ctx); err != nil {
		log.Fatal().Err(err).Msg("synchronization failed")
	}
	printSummary(contacts)

	if cfg.Workers.SyncInterval > 0 {
		job := syncer.NewJob(s, clockwork.NewRealClock(), log)
		job.Start(ctx, cfg.Workers.SyncInterval)
		log.Info().Dur("interval", cfg.Workers.SyncInterval).Msg("periodic synchronization running")

		<-ctx.Done()
		job.Stop()
	}
}

func newLogger(cfg *config.StructuredConfig) *logger.Logger {
	if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil && cfg.Log.Level != "" {
		zerolog.SetGlobalLevel(lvl)
	}

	if cfg.Log.File != "" {
		return logger.NewFileLogger("msnab", cfg.Log.File)
	}
	return logger.NewLogger("msnab")
}

func printSummary(contacts *addressbook.ContactList) {
	fmt.Printf("Groups: %d\n", len(contacts.GroupList()))
	fmt.Printf("Allowed: %d, Blocked: %d, Reverse: %d\n",
		len(contacts.Members(models.ServiceMessenger, models.RoleAllow)),
		len(contacts.Members(models.ServiceMessenger, models.RoleBlock)),
		len(contacts.Members(models.ServiceMessenger, models.RoleReverse)))

	circles := contacts.Circles()
	fmt.Printf("Circles: %d\n", len(circles))
	for _, c := range circles {
		fmt.Printf("  %s (%s, %s)\n", c.DisplayName, c.AbID, c.Role)
	}
}

func printBuildInfo() {
	fmt.Printf("Build version: %s\n", orNA(buildVersion))
	fmt.Printf("Build date: %s\n", orNA(buildDate))
	fmt.Printf("Build commit: %s\n", orNA(buildCommit))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// eventLogger surfaces merge notifications in the log; in a full client
// these would drive the presentation layer.
type eventLogger struct {
	log *logger.Logger
}

func (e *eventLogger) OnContactAdded(s models.ServiceName, account string, ct models.ClientType, list models.MSNList) {
	e.log.Info().Str("service", string(s)).Str("account", account).Int("list", int(list)).Msg("contact added")
}

func (e *eventLogger) OnContactRemoved(s models.ServiceName, account string, ct models.ClientType, list models.MSNList) {
	e.log.Info().Str("service", string(s)).Str("account", account).Int("list", int(list)).Msg("contact removed")
}

func (e *eventLogger) OnReverseAdded(account string, ct models.ClientType) {
	e.log.Info().Str("account", account).Msg("reverse contact added")
}

func (e *eventLogger) OnReverseRemoved(account string, ct models.ClientType) {
	e.log.Info().Str("account", account).Msg("reverse contact removed")
}

func (e *eventLogger) OnGroupAdded(g models.GroupEntry) {
	e.log.Info().Str("group", g.Name).Msg("group added")
}

func (e *eventLogger) OnGroupRemoved(g models.GroupEntry) {
	e.log.Info().Str("group", g.Name).Msg("group removed")
}

func (e *eventLogger) OnCircleCreated(c *addressbook.CircleRecord) {
	e.log.Info().Str("circle", c.DisplayName).Str("ab_id", c.AbID).Msg("circle created")
}

func (e *eventLogger) OnCircleExited(c *addressbook.CircleRecord) {
	e.log.Info().Str("circle", c.DisplayName).Str("ab_id", c.AbID).Msg("circle exited")
}

func (e *eventLogger) OnCircleInvitationReceived(info models.CircleInverseInfo) {
	e.log.Info().Str("circle", info.DisplayName).Str("ab_id", info.Key()).Msg("circle invitation received")
}

func (e *eventLogger) OnCircleMemberJoined(abID string, c models.ContactEntry) {
	e.log.Info().Str("ab_id", abID).Str("account", c.Account).Msg("circle member joined")
}

func (e *eventLogger) OnCircleMemberLeft(abID string, c models.ContactEntry) {
	e.log.Info().Str("ab_id", abID).Str("account", c.Account).Msg("circle member left")
}
