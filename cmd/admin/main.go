package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"modboard/backend/internal/models"
	"modboard/backend/internal/moderation"
	"modboard/backend/internal/notify"
	"modboard/backend/internal/storage"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage: admin <command> [args]")
	fmt.Println("  resolve <thread|response|profile> <id> <upheld|rejected>")
	fmt.Println("  override-outcount <report_id> <value>")
	fmt.Println("  penalty <user_id>")
	fmt.Println("  restriction <thread|response|profile> <id>")
	fmt.Println("  credibility <user_id>")
	os.Exit(1)
}

func main() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	logger := logrus.New()
	storageSvc := storage.NewStorageService(db, nil, logger) // No redis needed for the admin CLI
	engine := moderation.NewEngine(storageSvc, &notify.LogNotifier{Log: logger}, logger)
	ctx := context.Background()

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "resolve":
		if len(os.Args) != 5 {
			usage()
		}
		target, err := models.ParseTarget(os.Args[2], os.Args[3])
		if err != nil {
			log.Fatalf("Invalid target: %v", err)
		}
		decision, err := moderation.ParseDecision(os.Args[4])
		if err != nil {
			log.Fatalf("Invalid decision: %v", err)
		}
		if err := engine.ResolveReportGroup(ctx, target, decision); err != nil {
			log.Fatalf("Error resolving report group: %v", err)
		}
		fmt.Printf("Report group against %s resolved as %s.\n", target.String(), decision)

	case "override-outcount":
		if len(os.Args) != 4 {
			usage()
		}
		value, err := strconv.ParseFloat(os.Args[3], 64)
		if err != nil {
			log.Fatalf("Invalid out-count value: %v", err)
		}
		transition, err := engine.OverrideOutCount(ctx, os.Args[2], value)
		if err != nil {
			log.Fatalf("Error overriding out-count: %v", err)
		}
		fmt.Printf("Out-count overridden; owner %s is now %s (out-count %.2f).\n",
			transition.UserID, transition.To, transition.OutCount)

	case "penalty":
		if len(os.Args) != 3 {
			usage()
		}
		transition, err := engine.ReevaluatePenalty(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Error reevaluating penalty: %v", err)
		}
		fmt.Printf("User %s: %s -> %s (out-count %.2f)\n",
			transition.UserID, transition.From, transition.To, transition.OutCount)
		if transition.FrozenUntil != nil {
			fmt.Printf("Frozen until %s\n", transition.FrozenUntil)
		}

	case "restriction":
		if len(os.Args) != 4 {
			usage()
		}
		target, err := models.ParseTarget(os.Args[2], os.Args[3])
		if err != nil {
			log.Fatalf("Invalid target: %v", err)
		}
		decision, err := engine.EvaluateRestriction(ctx, target)
		if err != nil {
			log.Fatalf("Error evaluating restriction: %v", err)
		}
		fmt.Printf("Restricted: %v, reasons: %v\n", decision.IsRestricted, decision.Reasons)

	case "credibility":
		if len(os.Args) != 3 {
			usage()
		}
		score, err := engine.ReporterCredibility(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Error computing credibility: %v", err)
		}
		fmt.Printf("Reporter %s credibility: %.2f\n", os.Args[2], score)

	default:
		fmt.Println("Unknown command")
		usage()
	}
}
