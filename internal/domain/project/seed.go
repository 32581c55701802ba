package project

import "time"

func seedTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// DemoProjects returns the five projects a fresh demo store starts with.
func DemoProjects() []Project {
	return []Project{
		{
			ID:         "1",
			Name:       "Website Redesign",
			Status:     StatusInProgress,
			DueDate:    "2024-03-15",
			AssignedTo: 1,
			Summary:    "Complete redesign of company website with modern UI/UX",
			CreatedAt:  seedTime("2024-01-15T10:00:00Z"),
			UpdatedAt:  seedTime("2024-02-01T10:00:00Z"),
		},
		{
			ID:         "2",
			Name:       "Mobile App Development",
			Status:     StatusToDo,
			DueDate:    "2024-04-30",
			AssignedTo: 2,
			Summary:    "Develop cross-platform mobile app for customer engagement",
			CreatedAt:  seedTime("2024-01-20T10:00:00Z"),
			UpdatedAt:  seedTime("2024-01-20T10:00:00Z"),
		},
		{
			ID:         "3",
			Name:       "Database Migration",
			Status:     StatusCompleted,
			DueDate:    "2024-02-28",
			AssignedTo: 3,
			Summary:    "Migrate legacy database to new cloud infrastructure",
			CreatedAt:  seedTime("2024-01-10T10:00:00Z"),
			UpdatedAt:  seedTime("2024-02-25T10:00:00Z"),
		},
		{
			ID:         "4",
			Name:       "Security Audit",
			Status:     StatusToDo,
			DueDate:    "2024-03-30",
			AssignedTo: 4,
			Summary:    "Comprehensive security audit of all systems and applications",
			CreatedAt:  seedTime("2024-02-05T10:00:00Z"),
			UpdatedAt:  seedTime("2024-02-05T10:00:00Z"),
		},
		{
			ID:         "5",
			Name:       "API Documentation",
			Status:     StatusInProgress,
			DueDate:    "2024-03-20",
			AssignedTo: 5,
			Summary:    "Create comprehensive API documentation for developers",
			CreatedAt:  seedTime("2024-01-25T10:00:00Z"),
			UpdatedAt:  seedTime("2024-02-10T10:00:00Z"),
		},
	}
}
