package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Project is one logical database handle, addressed by project name.
type Project struct {
	Name     string
	Database *mongo.Database

	client *mongo.Client
}

// Manager owns the per-project Mongo clients. Health is re-queried by the
// callers at the start of each monitor tick and each ingestion event; the
// manager itself never caches health.
type Manager struct {
	projects []*Project
	mutex    sync.RWMutex
}

// Connect establishes a connection per configured project. urls maps project
// name to a MongoDB URI. At least one project must connect; the rest are
// logged and skipped so a single bad URI does not take the process down.
func Connect(urls map[string]string) (*Manager, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("no database URLs configured")
	}

	names := make([]string, 0, len(urls))
	for name := range urls {
		names = append(names, name)
	}
	sort.Strings(names)

	m := &Manager{}
	for _, name := range names {
		project, err := connectProject(name, urls[name])
		if err != nil {
			logrus.Errorf("Failed to connect project %s: %v", name, err)
			continue
		}
		m.projects = append(m.projects, project)
	}

	if len(m.projects) == 0 {
		return nil, fmt.Errorf("no project database reachable")
	}

	logrus.Infof("✅ Connected to %d project database(s)", len(m.projects))
	return m, nil
}

func connectProject(name, uri string) (*Project, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetMaxPoolSize(100)
	clientOptions.SetMinPoolSize(5)
	clientOptions.SetMaxConnIdleTime(30 * time.Second)
	clientOptions.SetRetryWrites(true)
	clientOptions.SetRetryReads(true)
	clientOptions.SetReadPreference(readpref.PrimaryPreferred())

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := extractDatabaseName(uri)
	logrus.Infof("📊 Project %s -> database %s", name, dbName)

	return &Project{
		Name:     name,
		Database: client.Database(dbName),
		client:   client,
	}, nil
}

// Healthy returns the projects that currently answer a ping.
func (m *Manager) Healthy(ctx context.Context) []*Project {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var healthy []*Project
	for _, p := range m.projects {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := p.client.Ping(pingCtx, readpref.Primary())
		cancel()

		if err != nil {
			logrus.Warnf("Project %s is unhealthy: %v", p.Name, err)
			continue
		}
		healthy = append(healthy, p)
	}
	return healthy
}

// Get returns the project by name, or nil.
func (m *Manager) Get(name string) *Project {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, p := range m.projects {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// All returns every configured project regardless of health.
func (m *Manager) All() []*Project {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]*Project, len(m.projects))
	copy(out, m.projects)
	return out
}

// Disconnect closes every client.
func (m *Manager) Disconnect() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, p := range m.projects {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := p.client.Disconnect(ctx); err != nil {
			logrus.Errorf("Error disconnecting project %s: %v", p.Name, err)
		}
		cancel()
	}

	logrus.Info("🔌 Disconnected from project databases")
}

// HealthCheck reports per-project status for the operational endpoint.
func (m *Manager) HealthCheck(ctx context.Context) map[string]string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make(map[string]string, len(m.projects))
	for _, p := range m.projects {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := p.client.Ping(pingCtx, readpref.Primary())
		cancel()

		if err != nil {
			result[p.Name] = fmt.Sprintf("unhealthy: %v", err)
		} else {
			result[p.Name] = "healthy"
		}
	}
	return result
}

// extractDatabaseName extracts the database name from a MongoDB URI.
func extractDatabaseName(uri string) string {
	defaultDB := "geoclock"

	trimmed := uri
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		trimmed = trimmed[idx+3:]
	}
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		name := trimmed[idx+1:]
		if q := strings.IndexAny(name, "?&"); q >= 0 {
			name = name[:q]
		}
		if name != "" && name != "admin" {
			return name
		}
	}
	return defaultDB
}
