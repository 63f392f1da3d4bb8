package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/abclient/api"
	"github.com/jonwraymond/abclient/resource"
)

func (c *CLI) newExperimentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "experiments",
		Aliases: []string{"exp"},
		Short:   "Manage experiments of the selected project",
	}
	cmd.AddCommand(c.newExperimentsListCmd())
	cmd.AddCommand(c.newExperimentsGetCmd())
	cmd.AddCommand(c.newExperimentsCreateCmd())
	cmd.AddCommand(c.newExperimentsStatusCmd())
	return cmd
}

func (c *CLI) newExperimentsListCmd() *cobra.Command {
	var f api.ExperimentFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List experiments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			page, err := await(cmd.Context(), e.client.ObserveExperiments(f))
			if err != nil {
				return err
			}

			t := &table{headers: []string{"ID", "NAME", "STATUS", "TAGS", "VARIANTS", "UPDATED"}}
			for _, x := range page.Items {
				t.add(x.ID, x.Name, string(x.Status), resource.JoinList(x.Tags), strconv.Itoa(len(x.Variants)), unixTime(x.UpdatedAt))
			}
			if err := c.print(cmd.OutOrStdout(), page, t); err != nil {
				return err
			}
			if c.flags.output == "table" && page.HasNext() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "showing page %d (%d experiments in total); next: --page %d\n", page.Page, page.Total, page.Page+1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "Only experiments with this status")
	cmd.Flags().StringVar(&f.Tag, "tag", "", "Only experiments with this tag")
	cmd.Flags().IntVar(&f.Page, "page", 0, "Page number, starting at 1")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "Page size")
	return cmd
}

func (c *CLI) newExperimentsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			x, err := await(cmd.Context(), e.client.ObserveExperiment(args[0]))
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), x, experimentTable(x))
		},
	}
}

func experimentTable(x resource.Experiment) *table {
	t := &table{headers: []string{"FIELD", "VALUE"}}
	t.add("id", x.ID)
	t.add("name", x.Name)
	t.add("status", string(x.Status))
	t.add("description", deref(x.Description))
	t.add("hypothesis", deref(x.Hypothesis))
	t.add("tags", resource.JoinList(x.Tags))
	t.add("audience", deref(x.AudienceID))
	t.add("assignment", string(x.Assignment.Type))
	if x.Assignment.StrataAttribute != nil {
		t.add("strata key", *x.Assignment.StrataAttribute)
	}
	for _, v := range x.Variants {
		label := v.Name
		if v.Control {
			label += " (control)"
		}
		switch x.Assignment.Type {
		case resource.AssignmentCohort:
			label += " " + formatWeight(x.Assignment.CohortWeights[v.Key]) + "%"
		case resource.AssignmentStratified:
			label += " [" + resource.JoinList(x.Assignment.StratifiedWeights[v.Key]) + "]"
		}
		t.add("variant "+v.Key, label)
	}
	t.add("winner", deref(x.WinningVariant))
	t.add("created", unixTime(x.CreatedAt))
	t.add("started", unixTimePtr(x.StartedAt))
	t.add("ended", unixTimePtr(x.EndedAt))
	return t
}

type experimentFlags struct {
	name        string
	description string
	hypothesis  string
	tags        string
	audience    string
	variants    []string
	control     string
	weights     []string
	strata      []string
	strataKey   string
}

func (c *CLI) newExperimentsCreateCmd() *cobra.Command {
	var fl experimentFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a DRAFT experiment",
		Long: `Create a DRAFT experiment.

Variants are given as key or key:name; the first is the control unless
--control names another. Cohort weights default to an even split. Passing
--stratum switches to stratified assignment.

  abctl experiments create --name "Checkout color" \
    --variant control:Blue --variant green:Green --weight control=70 --weight green=30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			x, err := fl.experiment()
			if err != nil {
				return err
			}
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			created, err := e.client.CreateExperiment(cmd.Context(), x)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), created, experimentTable(created))
		},
	}
	cmd.Flags().StringVar(&fl.name, "name", "", "Experiment name")
	cmd.Flags().StringVar(&fl.description, "description", "", "Description")
	cmd.Flags().StringVar(&fl.hypothesis, "hypothesis", "", "Hypothesis under test")
	cmd.Flags().StringVar(&fl.tags, "tags", "", "Comma-separated tags")
	cmd.Flags().StringVar(&fl.audience, "audience", "", "Audience id")
	cmd.Flags().StringArrayVar(&fl.variants, "variant", nil, "Variant as key or key:name (repeatable)")
	cmd.Flags().StringVar(&fl.control, "control", "", "Key of the control variant (default: the first)")
	cmd.Flags().StringArrayVar(&fl.weights, "weight", nil, "Cohort weight as key=percent (repeatable)")
	cmd.Flags().StringArrayVar(&fl.strata, "stratum", nil, "Strata of a variant as key=a,b (repeatable)")
	cmd.Flags().StringVar(&fl.strataKey, "strata-key", "", "User attribute the strata are drawn from")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// experiment builds the experiment described by the flags. Field-level
// checks are left to Experiment.Validate.
func (fl experimentFlags) experiment() (resource.Experiment, error) {
	x := resource.Experiment{
		Name:        fl.name,
		Description: resource.String(fl.description),
		Hypothesis:  resource.String(fl.hypothesis),
		Tags:        resource.SplitList(fl.tags),
		AudienceID:  resource.String(fl.audience),
	}

	control := fl.control
	for i, arg := range fl.variants {
		key, name, _ := strings.Cut(arg, ":")
		key = strings.TrimSpace(key)
		if name = strings.TrimSpace(name); name == "" {
			name = key
		}
		if control == "" && i == 0 {
			control = key
		}
		x.Variants = append(x.Variants, resource.Variant{Key: key, Name: name, Control: key == control})
	}

	if len(fl.strata) > 0 {
		x.Assignment = resource.Assignment{
			Type:              resource.AssignmentStratified,
			StratifiedWeights: make(map[string][]string, len(fl.strata)),
			StrataAttribute:   resource.String(fl.strataKey),
		}
		for _, arg := range fl.strata {
			key, values, ok := strings.Cut(arg, "=")
			if !ok {
				return resource.Experiment{}, fmt.Errorf("--stratum %q: want key=a,b", arg)
			}
			x.Assignment.StratifiedWeights[strings.TrimSpace(key)] = resource.SplitList(values)
		}
		return x, nil
	}

	x.Assignment = resource.Assignment{
		Type:          resource.AssignmentCohort,
		CohortWeights: make(map[string]float64, len(x.Variants)),
	}
	if len(fl.weights) == 0 {
		for _, v := range x.Variants {
			x.Assignment.CohortWeights[v.Key] = 100 / float64(len(x.Variants))
		}
		return x, nil
	}
	for _, arg := range fl.weights {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return resource.Experiment{}, fmt.Errorf("--weight %q: want key=percent", arg)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return resource.Experiment{}, fmt.Errorf("--weight %q: %w", arg, err)
		}
		x.Assignment.CohortWeights[strings.TrimSpace(key)] = w
	}
	return x, nil
}

func (c *CLI) newExperimentsStatusCmd() *cobra.Command {
	var winner string
	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change the status of an experiment",
		Long: "Change the status of an experiment to one of " +
			strings.Join(settableStatuses(), ", ") + ". --winner records the winning variant when concluding.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			updated, err := e.client.UpdateExperimentStatus(cmd.Context(), api.StatusChange{
				ID: args[0],
				StatusUpdate: resource.StatusUpdate{
					Status:         resource.ExperimentStatus(strings.ToUpper(args[1])),
					WinningVariant: resource.String(winner),
				},
			})
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), updated, experimentTable(updated))
		},
	}
	cmd.Flags().StringVar(&winner, "winner", "", "Winning variant key (CONCLUDED only)")
	return cmd
}

func settableStatuses() []string {
	statuses := []string{}
	for _, s := range []resource.ExperimentStatus{
		resource.StatusDraft, resource.StatusLive, resource.StatusPaused,
		resource.StatusConcluded, resource.StatusTerminated,
	} {
		if s.Settable() {
			statuses = append(statuses, string(s))
		}
	}
	sort.Strings(statuses)
	return statuses
}
