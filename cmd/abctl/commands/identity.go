package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/abclient/api"
	"github.com/jonwraymond/abclient/resource"
)

func (c *CLI) newTenantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Manage tenants",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			tenants, err := e.client.ListTenants(cmd.Context())
			if err != nil {
				return err
			}
			t := &table{headers: []string{"ID", "NAME", "SLUG", "CREATED"}}
			for _, x := range tenants {
				t.add(x.ID, x.Name, deref(x.Slug), unixTime(x.CreatedAt))
			}
			return c.print(cmd.OutOrStdout(), nonNil(tenants), t)
		},
	})

	var name, slug string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			x, err := e.client.CreateTenant(cmd.Context(), resource.Tenant{Name: name, Slug: resource.String(slug)})
			if err != nil {
				return err
			}
			t := &table{headers: []string{"ID", "NAME", "SLUG"}}
			t.add(x.ID, x.Name, deref(x.Slug))
			return c.print(cmd.OutOrStdout(), x, t)
		},
	}
	create.Flags().StringVar(&name, "name", "", "Tenant name")
	create.Flags().StringVar(&slug, "slug", "", "URL slug: lowercase letters, digits and hyphens")
	_ = create.MarkFlagRequired("name")
	cmd.AddCommand(create)
	return cmd
}

// tenantFlag resolves --tenant, defaulting to the tenant of the selected
// project.
func (c *CLI) tenantFlag(cmd *cobra.Command, e *env, tenant string) (string, error) {
	if tenant != "" {
		return tenant, nil
	}
	sess, err := e.session(cmd.Context())
	if err != nil {
		return "", err
	}
	if sess.TenantID == "" {
		return "", errors.New("no tenant selected: pass --tenant or run use-key")
	}
	return sess.TenantID, nil
}

// projectFlags resolves --tenant and --project, defaulting to the selected
// project.
func (c *CLI) projectFlags(cmd *cobra.Command, e *env, tenant, project string) (api.ProjectRef, error) {
	sess, err := e.session(cmd.Context())
	if err != nil {
		return api.ProjectRef{}, err
	}
	ref := api.ProjectRef{TenantID: tenant, ProjectID: project}
	if ref.TenantID == "" {
		ref.TenantID = sess.TenantID
	}
	if ref.ProjectID == "" {
		ref.ProjectID = sess.ProjectID
	}
	if ref.TenantID == "" || ref.ProjectID == "" {
		return api.ProjectRef{}, errors.New("no project selected: pass --tenant and --project or run use-key")
	}
	return ref, nil
}

func (c *CLI) newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects of a tenant",
	}

	var tenant string
	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			tid, err := c.tenantFlag(cmd, e, tenant)
			if err != nil {
				return err
			}
			projects, err := e.client.ListProjects(cmd.Context(), tid)
			if err != nil {
				return err
			}
			t := &table{headers: []string{"ID", "NAME", "DESCRIPTION", "CREATED"}}
			for _, p := range projects {
				t.add(p.ID, p.Name, deref(p.Description), unixTime(p.CreatedAt))
			}
			return c.print(cmd.OutOrStdout(), nonNil(projects), t)
		},
	}
	list.Flags().StringVar(&tenant, "tenant", "", "Tenant id (default: the selected tenant)")
	cmd.AddCommand(list)

	var createTenant, name, description string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			tid, err := c.tenantFlag(cmd, e, createTenant)
			if err != nil {
				return err
			}
			p, err := e.client.CreateProject(cmd.Context(), resource.Project{
				TenantID:    tid,
				Name:        name,
				Description: resource.String(description),
			})
			if err != nil {
				return err
			}
			t := &table{headers: []string{"ID", "TENANT", "NAME"}}
			t.add(p.ID, p.TenantID, p.Name)
			return c.print(cmd.OutOrStdout(), p, t)
		},
	}
	create.Flags().StringVar(&createTenant, "tenant", "", "Tenant id (default: the selected tenant)")
	create.Flags().StringVar(&name, "name", "", "Project name")
	create.Flags().StringVar(&description, "description", "", "Description")
	_ = create.MarkFlagRequired("name")
	cmd.AddCommand(create)
	return cmd
}

func (c *CLI) newAPIKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikeys",
		Short: "Manage API keys of a project",
	}

	var tenant, project string
	cmd.PersistentFlags().StringVar(&tenant, "tenant", "", "Tenant id (default: the selected tenant)")
	cmd.PersistentFlags().StringVar(&project, "project", "", "Project id (default: the selected project)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			ref, err := c.projectFlags(cmd, e, tenant, project)
			if err != nil {
				return err
			}
			keys, err := e.client.ListAPIKeys(cmd.Context(), ref)
			if err != nil {
				return err
			}
			t := &table{headers: []string{"ID", "NAME", "PREFIX", "CREATED", "EXPIRES", "LAST USED"}}
			for _, k := range keys {
				t.add(k.ID, k.Name, k.Prefix, unixTime(k.CreatedAt), unixTimePtr(k.ExpiresAt), unixTimePtr(k.LastUsedAt))
			}
			return c.print(cmd.OutOrStdout(), nonNil(keys), t)
		},
	})

	var name string
	var expiresIn time.Duration
	var use bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print its secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			ref, err := c.projectFlags(cmd, e, tenant, project)
			if err != nil {
				return err
			}
			req := api.NewAPIKey{ProjectRef: ref, APIKey: resource.APIKey{Name: name}}
			if expiresIn > 0 {
				exp := time.Now().Add(expiresIn).Unix()
				req.APIKey.ExpiresAt = &exp
			}
			key, err := e.client.CreateAPIKey(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.printSecret(cmd, e, ref, key, use)
		},
	}
	create.Flags().StringVar(&name, "name", "", "Key name")
	create.Flags().DurationVar(&expiresIn, "expires-in", 0, "Expire the key after this long")
	create.Flags().BoolVar(&use, "use", false, "Select the project with the new key")
	_ = create.MarkFlagRequired("name")
	cmd.AddCommand(create)

	var useRotated bool
	rotate := &cobra.Command{
		Use:   "rotate <key-id>",
		Short: "Replace the secret of an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			ref, err := c.projectFlags(cmd, e, tenant, project)
			if err != nil {
				return err
			}
			key, err := e.client.RotateAPIKey(cmd.Context(), api.KeyRef{ProjectRef: ref, KeyID: args[0]})
			if err != nil {
				return err
			}
			return c.printSecret(cmd, e, ref, key, useRotated)
		},
	}
	rotate.Flags().BoolVar(&useRotated, "use", false, "Select the project with the new secret")
	cmd.AddCommand(rotate)
	return cmd
}

// printSecret shows a freshly issued secret, which the server never
// returns again, and optionally selects it.
func (c *CLI) printSecret(cmd *cobra.Command, e *env, ref api.ProjectRef, key resource.APIKey, use bool) error {
	if key.Secret == nil {
		return errors.New("server returned no secret")
	}
	t := &table{headers: []string{"ID", "NAME", "PREFIX", "SECRET"}}
	t.add(key.ID, key.Name, key.Prefix, *key.Secret)
	if err := c.print(cmd.OutOrStdout(), key, t); err != nil {
		return err
	}
	if !use {
		return nil
	}
	if err := e.client.SelectProject(cmd.Context(), api.Selection{ProjectRef: ref, APIKey: *key.Secret}); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "selected project %s\n", ref.ProjectID)
	return nil
}

func (c *CLI) newUseKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use-key <tenant-id> <project-id> <api-key>",
		Short: "Select the project whose API key authenticates project commands",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			sel := api.Selection{
				ProjectRef: api.ProjectRef{TenantID: args[0], ProjectID: args[1]},
				APIKey:     args[2],
			}
			if err := e.client.SelectProject(cmd.Context(), sel); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "selected project %s of tenant %s\n", sel.ProjectID, sel.TenantID)
			return nil
		},
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
