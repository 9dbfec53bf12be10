package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"fixmycity/backend/internal/activity"
	"fixmycity/backend/internal/auth"
	"fixmycity/backend/internal/complaint"
	"fixmycity/backend/internal/config"
	"fixmycity/backend/internal/feed"
	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/models"
	"fixmycity/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
)

// cliActor is recorded as the actor of changes made from the command line.
var cliActor = &models.Principal{Kind: models.KindAdmin, Name: "admin-cli", Role: models.RoleSuperAdmin}

func usage() {
	fmt.Println("Usage: admin <command> [args]")
	fmt.Println("  create-superadmin <name> <email> <password>")
	fmt.Println("  suspend-worker <worker_id>")
	fmt.Println("  set-status <complaint_id> <Pending|InProgress|Resolved>")
	fmt.Println("  seed-types <file.json>")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadEnv()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: "console"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := storage.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect MongoDB")
	}
	defer store.Disconnect(context.Background())

	command := os.Args[1]

	switch command {
	case "create-superadmin":
		if len(os.Args) != 5 {
			fmt.Println("Usage: admin create-superadmin <name> <email> <password>")
			os.Exit(1)
		}
		a, err := createSuperAdmin(ctx, store, os.Args[2], os.Args[3], os.Args[4])
		if err != nil {
			logging.Fatal().Err(err).Msg("error creating superadmin")
		}
		fmt.Printf("Superadmin %s created with id %s.\n", a.Email, a.ID.Hex())
	case "suspend-worker":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin suspend-worker <worker_id>")
			os.Exit(1)
		}
		if err := suspendWorker(ctx, store, os.Args[2]); err != nil {
			logging.Fatal().Err(err).Msg("error suspending worker")
		}
		fmt.Printf("Worker %s has been suspended.\n", os.Args[2])
	case "set-status":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin set-status <complaint_id> <Pending|InProgress|Resolved>")
			os.Exit(1)
		}
		svc := complaintService(ctx, cfg, store)
		v, err := svc.UpdateStatus(ctx, cliActor, os.Args[2], models.ComplaintStatus(os.Args[3]), "", activity.RequestMeta{})
		if err != nil {
			logging.Fatal().Err(err).Msg("error updating complaint")
		}
		fmt.Printf("Complaint %s is now %s.\n", v.ID, v.Status)
	case "seed-types":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin seed-types <file.json>")
			os.Exit(1)
		}
		n, err := seedTypes(ctx, store, os.Args[2])
		if err != nil {
			logging.Fatal().Err(err).Msg("error seeding complaint types")
		}
		fmt.Printf("Seeded %d complaint types.\n", n)
	default:
		fmt.Println("Unknown command")
		usage()
		os.Exit(1)
	}
}

func createSuperAdmin(ctx context.Context, s storage.Storage, name, email, password string) (*models.Admin, error) {
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	a := &models.Admin{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
	}
	if err := s.CreateAdmin(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func suspendWorker(ctx context.Context, s storage.Storage, workerID string) error {
	id, err := storage.ParseID(workerID)
	if err != nil {
		return err
	}
	return s.UpdateWorker(ctx, id, bson.M{"status": models.StatusSuspended})
}

// complaintService wires the complaint service the way the API does, so a
// status change from the CLI is audited and reaches live dashboards. Both
// collaborators are optional here.
func complaintService(ctx context.Context, cfg *config.Config, s storage.Storage) *complaint.Service {
	var logger *activity.Logger
	if act, err := activity.Open(cfg.PostgresDSN); err != nil {
		logging.Warn().Err(err).Msg("activity store unavailable, change will not be audited")
	} else {
		logger = activity.NewLogger(act)
	}

	var pub feed.Publisher
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logging.Warn().Err(err).Msg("redis unavailable, dashboards will not be notified")
	} else {
		pub = feed.NewRedisPublisher(rdb)
	}
	return complaint.NewService(s, nil, logger, pub, nil)
}

// seedFile is the JSON layout accepted by seed-types. Departments are
// matched by name and created when missing.
type seedFile []struct {
	Name       string   `json:"name"`
	Department string   `json:"department"`
	SubTypes   []string `json:"subTypes"`
}

func seedTypes(ctx context.Context, s storage.Storage, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	depts, err := s.ListDepartments(ctx)
	if err != nil {
		return 0, err
	}
	byName := make(map[string]*models.Department, len(depts))
	for i := range depts {
		byName[strings.ToLower(depts[i].Name)] = &depts[i]
	}

	existing, err := s.ListComplaintTypes(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[strings.ToLower(t.Name)] = true
	}

	created := 0
	for _, entry := range seed {
		name := strings.TrimSpace(entry.Name)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		if strings.TrimSpace(entry.Department) == "" {
			return created, fmt.Errorf("complaint type %q has no department", name)
		}
		d, ok := byName[strings.ToLower(strings.TrimSpace(entry.Department))]
		if !ok {
			d = &models.Department{Name: strings.TrimSpace(entry.Department)}
			if err := s.CreateDepartment(ctx, d); err != nil {
				return created, fmt.Errorf("create department %q: %w", d.Name, err)
			}
			byName[strings.ToLower(d.Name)] = d
		}
		deptID := d.ID
		t := &models.ComplaintType{Name: name, DepartmentID: &deptID, SubTypes: models.NewSubTypes(entry.SubTypes)}
		if err := s.CreateComplaintType(ctx, t); err != nil {
			return created, fmt.Errorf("create complaint type %q: %w", name, err)
		}
		seen[strings.ToLower(name)] = true
		created++
	}
	return created, nil
}
