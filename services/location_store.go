package services

import (
	"context"
	"fmt"
	"time"

	"geoclock/database"
	"geoclock/models"
	"geoclock/repositories"

	"github.com/sirupsen/logrus"
)

// ManagerLocationStore adapts the project manager to the ingestion path's
// store surface. Writes go through the retrying adapter; the chat scan covers
// every healthy project, skipping projects whose lookup fails.
type ManagerLocationStore struct {
	manager *database.Manager
}

func NewManagerLocationStore(manager *database.Manager) *ManagerLocationStore {
	return &ManagerLocationStore{manager: manager}
}

func (s *ManagerLocationStore) FindEmployeeByChat(ctx context.Context, chatID string) (*models.Employee, string, error) {
	for _, project := range s.manager.Healthy(ctx) {
		employee, err := repositories.NewEmployeeRepository(project.Database).GetByTelegramChatID(ctx, chatID)
		if err != nil {
			logrus.Warnf("Chat lookup failed on project %s: %v", project.Name, err)
			continue
		}
		if employee != nil {
			return employee, project.Name, nil
		}
	}
	return nil, "", nil
}

func (s *ManagerLocationStore) UpdateCurrentLocation(ctx context.Context, projectName, employeeID string, location *models.CurrentLocation, lastChanged time.Time) error {
	project := s.manager.Get(projectName)
	if project == nil {
		return fmt.Errorf("project %s not configured", projectName)
	}

	employeeRepo := repositories.NewEmployeeRepository(project.Database)
	return database.WithRetry(ctx, projectName, "update current location", func(ctx context.Context) error {
		return employeeRepo.UpdateCurrentLocation(ctx, employeeID, location, lastChanged)
	})
}

func (s *ManagerLocationStore) AppendLocationLog(ctx context.Context, projectName string, log *models.LocationLog) error {
	project := s.manager.Get(projectName)
	if project == nil {
		return fmt.Errorf("project %s not configured", projectName)
	}

	employeeRepo := repositories.NewEmployeeRepository(project.Database)
	return database.WithRetry(ctx, projectName, "append location log", func(ctx context.Context) error {
		return employeeRepo.AppendLocationLog(ctx, log)
	})
}
