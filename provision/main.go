package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
)

// organizations share one partition so child lookups can filter on ParentID.
const orgPartition = "org"

type orgEntity struct {
	aztables.Entity
	Name     string `json:"Name"`
	ParentID string `json:"ParentID"`
}

type membershipEntity struct {
	aztables.Entity
	Role string `json:"Role"`
}

type seedOrg struct {
	id       string
	name     string
	parentID string
}

type seedMembership struct {
	userID string
	orgID  string
	role   string
}

var demoOrgs = []seedOrg{
	{id: "org-techcorp", name: "TechCorp"},
	{id: "org-techcorp-sales", name: "TechCorp Sales", parentID: "org-techcorp"},
	{id: "org-financeinc", name: "FinanceInc"},
}

var demoMemberships = []seedMembership{
	{userID: "user-owner", orgID: "org-techcorp", role: "owner"},
	{userID: "user-admin", orgID: "org-techcorp", role: "admin"},
	{userID: "user-viewer", orgID: "org-techcorp", role: "viewer"},
	{userID: "user-sales-admin", orgID: "org-techcorp-sales", role: "admin"},
	{userID: "user-finance-owner", orgID: "org-financeinc", role: "owner"},
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("provisioning starting")

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}

	orgsTable := os.Getenv("ORGANIZATIONS_TABLE")
	membershipsTable := os.Getenv("MEMBERSHIPS_TABLE")
	tasksTable := os.Getenv("TASKS_TABLE")
	auditTable := os.Getenv("AUDIT_LOG_TABLE")
	if orgsTable == "" || membershipsTable == "" || tasksTable == "" || auditTable == "" {
		log.Fatal("missing table config")
	}

	ctx := context.Background()

	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		log.Fatalf("service client: %v", err)
	}

	if err := createTables(ctx, svc, []string{orgsTable, membershipsTable, tasksTable, auditTable}); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	if queue := os.Getenv("AUDIT_EXPORT_QUEUE"); queue != "" {
		if err := createQueue(ctx, connStr, queue); err != nil {
			log.Fatalf("create queue: %v", err)
		}
	}

	if seed, err := strconv.ParseBool(os.Getenv("SEED_DEMO_DATA")); err == nil && seed {
		if err := seedDemoData(ctx, svc, orgsTable, membershipsTable); err != nil {
			log.Fatalf("seed demo data: %v", err)
		}
		log.Info("demo data seeded")
	}

	log.Info("provisioning complete")
}

func createTables(ctx context.Context, svc *aztables.ServiceClient, names []string) error {
	for _, name := range names {
		c := svc.NewClient(name)
		_, err := c.CreateTable(ctx, nil)
		if err != nil {
			var respErr *azcore.ResponseError
			if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
				return err
			}
			log.Debugf("table %s already exists", name)
		}
	}
	return nil
}

func createQueue(ctx context.Context, connStr, name string) error {
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, name, nil)
	if err != nil {
		return err
	}
	_, err = q.Create(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists") {
			return err
		}
		log.Debugf("queue %s already exists", name)
	}
	return nil
}

func seedDemoData(ctx context.Context, svc *aztables.ServiceClient, orgsTable, membershipsTable string) error {
	if err := validateHierarchy(demoOrgs); err != nil {
		return err
	}

	orgs := svc.NewClient(orgsTable)
	for _, org := range demoOrgs {
		ent := orgEntity{
			Entity:   aztables.Entity{PartitionKey: orgPartition, RowKey: org.id},
			Name:     org.name,
			ParentID: org.parentID,
		}
		if err := upsert(ctx, orgs, ent); err != nil {
			return fmt.Errorf("org %s: %w", org.id, err)
		}
	}

	memberships := svc.NewClient(membershipsTable)
	for _, m := range demoMemberships {
		ent := membershipEntity{
			Entity: aztables.Entity{PartitionKey: m.userID, RowKey: m.orgID},
			Role:   m.role,
		}
		if err := upsert(ctx, memberships, ent); err != nil {
			return fmt.Errorf("membership %s/%s: %w", m.userID, m.orgID, err)
		}
	}
	return nil
}

// validateHierarchy rejects nesting deeper than one level: a parent
// organization must itself be a root.
func validateHierarchy(orgs []seedOrg) error {
	parents := make(map[string]string, len(orgs))
	for _, org := range orgs {
		parents[org.id] = org.parentID
	}
	for _, org := range orgs {
		if org.parentID == "" {
			continue
		}
		grandparent, known := parents[org.parentID]
		if !known {
			return fmt.Errorf("organization %s references unknown parent %s", org.id, org.parentID)
		}
		if grandparent != "" {
			return fmt.Errorf("organization %s nests deeper than one level", org.id)
		}
	}
	return nil
}

func upsert(ctx context.Context, table *aztables.Client, ent any) error {
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = table.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}
