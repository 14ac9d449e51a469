// Package factory builds the portal's backend clients and report sinks from the configuration.
package factory

import (
	"fmt"
	"sync"

	"github.com/Dorico-Dynamics/txova-go-core/logging"

	"github.com/Dorico-Dynamics/txova-go-portal/auth"
	"github.com/Dorico-Dynamics/txova-go-portal/base"
	"github.com/Dorico-Dynamics/txova-go-portal/config"
	"github.com/Dorico-Dynamics/txova-go-portal/external/errorreport"
	"github.com/Dorico-Dynamics/txova-go-portal/external/storage"
	"github.com/Dorico-Dynamics/txova-go-portal/server"
	"github.com/Dorico-Dynamics/txova-go-portal/services/account"
	"github.com/Dorico-Dynamics/txova-go-portal/services/catalog"
	"github.com/Dorico-Dynamics/txova-go-portal/services/club"
	"github.com/Dorico-Dynamics/txova-go-portal/services/order"
	"github.com/Dorico-Dynamics/txova-go-portal/services/post"
	"github.com/Dorico-Dynamics/txova-go-portal/services/profile"
)

// Factory creates and manages the portal clients.
// Every client is created on first use and shared afterwards.
// All backend clients share one server-context base client.
type Factory struct {
	cfg    *config.Config
	logger *logging.Logger

	mu        sync.RWMutex
	base      *base.Client
	account   *account.Client
	auth      *auth.Client
	reporter  *errorreport.Reporter
	publisher *errorreport.KafkaPublisher
}

// New creates a new client factory.
func New(cfg *config.Config, logger *logging.Logger) (*Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	return &Factory{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Base returns the shared base client, creating it if necessary.
func (f *Factory) Base() (*base.Client, error) {
	f.mu.RLock()
	if f.base != nil {
		defer f.mu.RUnlock()
		return f.base, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring write lock
	if f.base != nil {
		return f.base, nil
	}

	client, err := base.NewClient(f.cfg.BaseConfig(), f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create base client: %w", err)
	}

	f.base = client
	return f.base, nil
}

// Account returns the account client, creating it if necessary.
func (f *Factory) Account() (*account.Client, error) {
	f.mu.RLock()
	if f.account != nil {
		defer f.mu.RUnlock()
		return f.account, nil
	}
	f.mu.RUnlock()

	b, err := f.Base()
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.account == nil {
		f.account = account.New(b)
	}
	return f.account, nil
}

// Auth returns the session-authenticated client. Expired sessions are refreshed through the account client.
func (f *Factory) Auth() (*auth.Client, error) {
	f.mu.RLock()
	if f.auth != nil {
		defer f.mu.RUnlock()
		return f.auth, nil
	}
	f.mu.RUnlock()

	acct, err := f.Account()
	if err != nil {
		return nil, err
	}
	b, err := f.Base()
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.auth == nil {
		f.auth = auth.NewClient(b, acct, f.logger)
	}
	return f.auth, nil
}

// Profile returns a profile client.
func (f *Factory) Profile() (*profile.Client, error) {
	ac, err := f.Auth()
	if err != nil {
		return nil, err
	}
	return profile.NewClient(ac), nil
}

// Club returns a club client.
func (f *Factory) Club() (*club.Client, error) {
	ac, err := f.Auth()
	if err != nil {
		return nil, err
	}
	return club.NewClient(ac), nil
}

// Post returns a post client.
func (f *Factory) Post() (*post.Client, error) {
	ac, err := f.Auth()
	if err != nil {
		return nil, err
	}
	return post.NewClient(ac), nil
}

// Order returns an order client.
func (f *Factory) Order() (*order.Client, error) {
	ac, err := f.Auth()
	if err != nil {
		return nil, err
	}
	return order.NewClient(ac), nil
}

// Catalog returns a catalog client using the configured products page size.
func (f *Factory) Catalog() (*catalog.Client, error) {
	b, err := f.Base()
	if err != nil {
		return nil, err
	}
	return catalog.New(b, f.cfg.ProductsPageSize()), nil
}

// Reporter returns the client error reporter, creating it if necessary.
// Kafka publishing is enabled by ERROR_REPORT_KAFKA_BROKERS and archiving by ERROR_REPORT_STORAGE_ENDPOINT.
func (f *Factory) Reporter() (*errorreport.Reporter, error) {
	f.mu.RLock()
	if f.reporter != nil {
		defer f.mu.RUnlock()
		return f.reporter, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.reporter != nil {
		return f.reporter, nil
	}

	rc := &errorreport.Config{}

	if reports := f.cfg.ErrorReports; len(reports.KafkaBrokers) > 0 {
		publisher, err := errorreport.NewKafkaPublisher(reports.KafkaBrokers, reports.KafkaTopic)
		if err != nil {
			return nil, fmt.Errorf("failed to create error report publisher: %w", err)
		}
		f.publisher = publisher
		rc.Publisher = publisher
	}

	if sc := f.cfg.StorageConfig(); sc != nil {
		archive, err := storage.NewClient(sc, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create error report archive: %w", err)
		}
		rc.Archive = archive
	}

	f.reporter = errorreport.New(rc, f.logger)
	return f.reporter, nil
}

// Services builds every client the portal routes need.
func (f *Factory) Services() (server.Services, error) {
	var (
		svc server.Services
		err error
	)

	if svc.Account, err = f.Account(); err != nil {
		return svc, err
	}
	if svc.Profile, err = f.Profile(); err != nil {
		return svc, err
	}
	if svc.Club, err = f.Club(); err != nil {
		return svc, err
	}
	if svc.Post, err = f.Post(); err != nil {
		return svc, err
	}
	if svc.Catalog, err = f.Catalog(); err != nil {
		return svc, err
	}
	if svc.Order, err = f.Order(); err != nil {
		return svc, err
	}
	if svc.Reporter, err = f.Reporter(); err != nil {
		return svc, err
	}

	return svc, nil
}

// Close releases the report publisher, if one was created.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.publisher == nil {
		return nil
	}
	err := f.publisher.Close()
	f.publisher = nil
	return err
}
