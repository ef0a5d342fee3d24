package services

import (
	"context"

	"workhub-manager/server/models"
	"workhub-manager/server/repositories"
)

type DashboardService struct {
	Tasks repositories.TaskRepository
	Users repositories.UserRepository
}

func NewDashboardService(tasks repositories.TaskRepository, users repositories.UserRepository) *DashboardService {
	return &DashboardService{Tasks: tasks, Users: users}
}

// Statistics summarises the live tasks visible to the caller: every task for
// admins, otherwise only tasks whose team includes them. Active users are
// listed for admins only.
func (s *DashboardService) Statistics(ctx context.Context, identity models.Identity) (*models.DashboardSummary, error) {
	notTrashed := false
	filter := repositories.TaskFilter{IsTrashed: &notTrashed}
	if !identity.IsAdmin {
		member := identity.UserID
		filter.Member = &member
	}

	tasks, err := s.Tasks.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	byStage := map[models.Stage]int{}
	for _, t := range tasks {
		byStage[t.Stage]++
	}

	summary := &models.DashboardSummary{
		TotalTasks: len(tasks),
		Tasks:      byStage,
		AllTasks:   tasks,
		Users:      []models.ActiveUser{},
	}

	if identity.IsAdmin {
		users, err := s.Users.FindActive(ctx)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			summary.Users = append(summary.Users, models.ActiveUser{
				ID:        u.ID,
				Name:      u.Name,
				Title:     u.Title,
				Role:      u.Role,
				IsActive:  u.IsActive,
				IsAdmin:   u.IsAdmin,
				CreatedAt: u.CreatedAt,
			})
		}
	}
	return summary, nil
}
