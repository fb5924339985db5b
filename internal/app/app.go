// Package app wires configuration, storage and services into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/hospital-booking/backend/internal/adapters/cache"
	"github.com/zatekoja/hospital-booking/backend/internal/adapters/database"
	"github.com/zatekoja/hospital-booking/backend/internal/adapters/events"
	"github.com/zatekoja/hospital-booking/backend/internal/adapters/memory"
	"github.com/zatekoja/hospital-booking/backend/internal/adapters/redisstore"
	"github.com/zatekoja/hospital-booking/backend/internal/adapters/search"
	"github.com/zatekoja/hospital-booking/backend/internal/application/seed"
	"github.com/zatekoja/hospital-booking/backend/internal/application/services"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/providers"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	"github.com/zatekoja/hospital-booking/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/hospital-booking/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/hospital-booking/backend/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/hospital-booking/backend/pkg/config"
)

const draftCachePrefix = "hospital-booking"

// Repositories is the storage backend selected by STORAGE_DRIVER
type Repositories struct {
	Accounts     repositories.AccountRepository
	Appointments repositories.AppointmentRepository
	Specialties  repositories.SpecialtyRepository
	Sessions     repositories.SessionRepository
}

// App holds the wired services
type App struct {
	Config *Config
	Repos  Repositories

	Clock        *services.Clock
	Catalog      *services.Catalog
	Directory    *services.DoctorDirectory
	Availability *services.AvailabilityChecker
	Reconciler   *services.ReconciliationService
	PatientCodes *services.PatientCodeGenerator
	Accounts     *services.AccountService
	Sessions     *services.SessionService
	Specialties  *services.SpecialtyService
	Appointments *services.AppointmentService
	Wizard       *services.WizardService
	Dashboard    *services.DashboardService
	Seeder       *seed.Seeder
	EventBus     providers.EventBus

	closers []func() error
}

// Config is the application configuration
type Config = config.Config

// New connects the configured backends and builds every service
func New(ctx context.Context, cfg *Config) (*App, error) {
	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	a := &App{Config: cfg, Clock: services.NewClock(loc, time.Now)}

	var redisClient *redis.Client
	if cfg.Storage.Driver == config.StorageRedis || cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(&cfg.Redis)
		switch {
		case err == nil:
			a.closers = append(a.closers, redisClient.Close)
		case cfg.Storage.Driver == config.StorageRedis:
			return nil, fmt.Errorf("connect redis: %w", err)
		default:
			log.Warn().Err(err).Msg("Redis unavailable, using in-process drafts and events")
			redisClient = nil
		}
	}

	if err := a.openStorage(ctx, redisClient); err != nil {
		_ = a.Close()
		return nil, err
	}

	var drafts providers.CacheProvider
	if redisClient != nil {
		drafts = cache.NewRedisAdapter(redisClient, draftCachePrefix)
		a.EventBus = events.NewRedisEventBus(redisClient)
	} else {
		drafts = cache.NewMemoryAdapter(time.Now)
		a.EventBus = events.NewMemoryEventBus()
	}
	// the bus must close before the redis client it uses
	a.closers = append([]func() error{a.EventBus.Close}, a.closers...)

	var doctorSearch providers.DoctorSearchProvider
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable, doctor search scans the catalog")
		} else {
			adapter := search.NewTypesenseAdapter(tsClient)
			if err := adapter.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to initialize doctor search schema")
			} else {
				doctorSearch = adapter
			}
		}
	}

	r := a.Repos
	a.Catalog = services.DefaultCatalog()
	a.Directory = services.NewDoctorDirectory(a.Catalog, r.Specialties, doctorSearch)
	a.Availability = services.NewAvailabilityChecker(r.Appointments, a.Catalog, a.Clock)
	a.Reconciler = services.NewReconciliationService(r.Appointments, a.Clock, a.EventBus)
	a.PatientCodes = services.NewPatientCodeGenerator(r.Accounts, a.Clock)
	a.Accounts = services.NewAccountService(r.Accounts, r.Appointments, r.Sessions, a.PatientCodes, a.Catalog, a.Clock).
		WithEventBus(a.EventBus)
	a.Sessions = services.NewSessionService(r.Accounts, r.Sessions, a.Clock, cfg.Booking.SessionTTL)
	a.Specialties = services.NewSpecialtyService(r.Specialties, r.Accounts, a.Directory)
	a.Appointments = services.NewAppointmentService(r.Appointments, r.Accounts, a.Directory, a.Availability, a.Reconciler, a.Clock, a.EventBus)
	a.Wizard = services.NewWizardService(
		services.NewBookingWizard(a.Directory, a.Availability, a.Clock),
		a.Appointments, a.Availability, drafts, a.Clock, cfg.Booking.DraftTTL,
	)
	a.Dashboard = services.NewDashboardService(a.Appointments, a.Accounts, r.Accounts, a.Clock)
	a.Seeder = seed.NewSeeder(a.Accounts, r.Accounts, r.Specialties, r.Appointments, a.Catalog, a.Clock)

	// renames made before this process started
	if err := a.Directory.Sync(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to sync catalog doctors with stored specialties")
	}
	if doctorSearch != nil {
		if err := a.Directory.Reindex(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to index doctors")
		}
	}
	return a, nil
}

func (a *App) openStorage(ctx context.Context, redisClient *redis.Client) error {
	switch a.Config.Storage.Driver {
	case config.StorageMemory:
		a.Repos = Repositories{
			Accounts:     memory.NewAccountStore(),
			Appointments: memory.NewAppointmentStore(),
			Specialties:  memory.NewSpecialtyStore(),
			Sessions:     memory.NewSessionStore(time.Now),
		}
	case config.StorageRedis:
		rdb := redisClient.Client()
		a.Repos = Repositories{
			Accounts:     redisstore.NewAccountStore(rdb),
			Appointments: redisstore.NewAppointmentStore(rdb),
			Specialties:  redisstore.NewSpecialtyStore(rdb),
			Sessions:     redisstore.NewSessionStore(rdb, time.Now),
		}
	case config.StoragePostgres:
		pg, err := postgres.NewClient(&a.Config.Database)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if err := database.Migrate(ctx, pg); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		a.Repos = Repositories{
			Accounts:     database.NewAccountAdapter(pg),
			Appointments: database.NewAppointmentAdapter(pg),
			Specialties:  database.NewSpecialtyAdapter(pg),
			Sessions:     database.NewSessionAdapter(pg, time.Now),
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", a.Config.Storage.Driver)
	}
	log.Info().Str("driver", a.Config.Storage.Driver).Msg("Storage initialized")
	return nil
}

// Close releases every backend connection
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
