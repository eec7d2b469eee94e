package catalog

import "time"

// SeedDemo loads a handful of demo events so the app is browsable on first
// run. No-op when the catalog already has events.
func SeedDemo(s *Store) {
	if len(s.Events(EventFilter{})) > 0 {
		return
	}

	day := func(offset int) string {
		return time.Now().AddDate(0, 0, offset).Format("2006-01-02")
	}

	seeds := []struct {
		fields     EventFields
		registered int
		status     Status
	}{
		{
			fields: EventFields{
				Title:       "Annual Sports Day",
				Description: "Inter-school sports competition featuring athletics, basketball, and soccer.",
				Category:    CategorySports,
				Date:        day(5),
				Time:        "09:00 AM",
				Location:    "Main Sports Ground",
				Capacity:    200,
				Organizer:   "PE Department",
			},
			registered: 145,
			status:     StatusUpcoming,
		},
		{
			fields: EventFields{
				Title:       "Coding Hackathon",
				Description: "24-hour coding competition for building innovative tech solutions.",
				Category:    CategoryTechnology,
				Date:        day(12),
				Time:        "10:00 AM",
				Location:    "Computer Lab",
				Capacity:    50,
				Organizer:   "CS Department",
			},
			registered: 48,
			status:     StatusUpcoming,
		},
		{
			fields: EventFields{
				Title:       "Community Clean-Up Drive",
				Description: "Environmental initiative to clean local parks and streets.",
				Category:    CategoryCommunityService,
				Date:        day(0),
				Time:        "08:00 AM",
				Location:    "City Park",
				Capacity:    100,
				Organizer:   "Student Council",
			},
			registered: 82,
			status:     StatusOngoing,
		},
	}

	for _, seed := range seeds {
		event := s.CreateEvent(seed.fields)
		// Seeded counts stand in for registrations from other sessions.
		s.mu.Lock()
		if e := s.find(event.ID); e != nil {
			e.Registered = seed.registered
			e.Status = seed.status
		}
		s.mu.Unlock()
	}
}
