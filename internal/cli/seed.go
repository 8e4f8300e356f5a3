package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Harshitk-cp/practicedesk/internal/audit"
	"github.com/Harshitk-cp/practicedesk/internal/config"
	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/Harshitk-cp/practicedesk/internal/service"
	"github.com/Harshitk-cp/practicedesk/internal/store"
	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type seedOptions struct {
	name  string
	slug  string
	email string
}

func newSeedCmd() *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo tenant with sample clients and bookings",
		Long: `Seed bootstraps a tenant and its owner, then adds a few clients, bookings
and service requests through the tenant guard. The owner's API key is
printed once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zap.NewNop()
			backend, err := store.Open(cmd.Context(), store.Options{
				Driver:         config.StoreDriver(),
				DatabaseURL:    config.DatabaseURL(),
				MigrationsPath: config.MigrationsPath(),
			}, logger)
			if err != nil {
				return err
			}
			defer backend.Close()

			engine := guard.NewEngine(guard.Config{Enabled: true, ExemptModels: domain.UnscopedModels()})
			exec := guard.New(engine, backend.Executor, audit.NewZapSink(logger))
			return seed(cmd.Context(), exec, opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "Demo Practice", "tenant name")
	f.StringVar(&opts.slug, "slug", "demo", "tenant slug")
	f.StringVar(&opts.email, "owner-email", "owner@demo.test", "owner email")
	return cmd
}

func seed(ctx context.Context, exec guard.Executor, opts *seedOptions, out io.Writer) error {
	tenants := service.NewTenantService(exec, zap.NewNop())
	requestID := "seed-" + uuid.NewString()

	boot, err := tenants.Bootstrap(ctx, service.BootstrapRequest{
		Name:       opts.name,
		Slug:       opts.slug,
		OwnerEmail: opts.email,
		OwnerName:  "Owner",
		RequestID:  requestID,
	})
	if err != nil {
		return fmt.Errorf("bootstrap tenant: %w", err)
	}

	owner := tenancy.ForTenant(boot.Tenant.ID.String(), boot.Owner.ID.String(), tenancy.RoleAdmin, tenancy.TenantRoleOwner, requestID)
	err = tenancy.Run(ctx, owner, func(ctx context.Context) error {
		clients := service.NewClientService(exec)
		bookings := service.NewBookingService(exec)
		requests := service.NewServiceRequestService(exec)
		settings := service.NewSettingService(exec)

		start := time.Now().UTC().Truncate(time.Hour).Add(24 * time.Hour)
		for i, name := range []string{"Acme Ltd", "Brightside Bakery", "Copperfield & Sons"} {
			c := &domain.Client{Name: name, Email: fmt.Sprintf("client%d@demo.test", i+1)}
			if err := clients.Create(ctx, c); err != nil {
				return fmt.Errorf("create client %q: %w", name, err)
			}
			b := &domain.Booking{
				ClientID: c.ID,
				Title:    "Quarterly review",
				StartsAt: start.Add(time.Duration(i) * 2 * time.Hour),
				EndsAt:   start.Add(time.Duration(i)*2*time.Hour + time.Hour),
			}
			if err := bookings.Create(ctx, b); err != nil {
				return fmt.Errorf("create booking: %w", err)
			}
			r := &domain.ServiceRequest{ClientID: c.ID, Title: "Annual accounts", FeeCents: int64(50000 + i*25000)}
			if err := requests.Create(ctx, r); err != nil {
				return fmt.Errorf("create service request: %w", err)
			}
		}
		_, err := settings.Put(ctx, "booking.default_minutes", "60")
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "tenant:  %s (%s)\n", boot.Tenant.Slug, boot.Tenant.ID)
	fmt.Fprintf(out, "owner:   %s\n", boot.Owner.Email)
	fmt.Fprintf(out, "api key: %s\n", boot.APIKey)
	return nil
}
