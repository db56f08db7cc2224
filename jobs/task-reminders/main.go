package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/reminders"
)

func main() {
	slog.Info("Starting task reminder job")
	start := time.Now()

	defer func() {
		if err := recruitmentDBService.Close(); err != nil {
			slog.Error("Error closing DB connection", slog.String("error", err.Error()))
		}
	}()

	ctx := context.Background()
	collector := reminders.NewCollector()
	if err := recruitmentDBService.FindAndExecuteOnOverdueTasks(ctx, start.Add(-overdueBy), collector.Add); err != nil {
		slog.Error("Failed to load overdue tasks", slog.String("error", err.Error()))
		return
	}
	slog.Info("Overdue tasks found", slog.Int("tasks", collector.TaskCount()), slog.Int("authors", len(collector.Reminders())))

	sent, skipped, failed := 0, 0, 0
	for _, r := range collector.Reminders() {
		user, err := recruitmentDBService.GetUserByID(ctx, r.AuthorID)
		if err != nil {
			slog.Error("Failed to load task author", slog.String("userID", r.AuthorID.Hex()), slog.String("error", err.Error()))
			failed++
			continue
		}
		if !user.IsActive {
			slog.Debug("Skipping inactive user", slog.String("userID", user.ID.Hex()))
			skipped++
			continue
		}
		if conf.DryRun {
			slog.Info("Dry run, reminder not sent", slog.String("userID", user.ID.Hex()), slog.Int("tasks", len(r.Tasks)))
			skipped++
			continue
		}

		if err := reminders.Send(mailer, messageTemplates, user, r); err != nil {
			slog.Error("Failed to send task reminder", slog.String("userID", user.ID.Hex()), slog.String("error", err.Error()))
			failed++
			continue
		}
		sent++
	}

	slog.Info("Task reminder job completed",
		slog.Int("sent", sent),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
		slog.String("duration", time.Since(start).String()),
	)
}
