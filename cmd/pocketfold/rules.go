package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pocketfold/pocketfold/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage reclassification rules",
		Long: `Rules reclassify processed receipts. Each rule carries a JSON condition
expression and a JSON action object; active rules run in priority order
after every AI extraction, and their changes always win.`,
	}

	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesSetActiveCmd("enable", true))
	cmd.AddCommand(rulesSetActiveCmd("disable", false))
	cmd.AddCommand(rulesDeleteCmd())

	return cmd
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a reclassification rule",
		Example: `  pocketfold rules add --name "Starbucks is dining" \
    --conditions '{"field": "merchant", "operator": "contains", "value": "starbucks"}' \
    --actions '{"set": {"category": "Dining"}, "append_tags": ["coffee"]}'`,
		RunE: runRulesAdd,
	}

	cmd.Flags().Int64("user", 1, "user ID owning the rule")
	cmd.Flags().String("name", "", "rule name shown in explanation trails")
	cmd.Flags().String("conditions", "", "JSON condition expression (required)")
	cmd.Flags().String("actions", "", "JSON action object (required)")
	cmd.Flags().Int("priority", 0, "evaluation priority (lower runs first)")
	_ = cmd.MarkFlagRequired("conditions")
	_ = cmd.MarkFlagRequired("actions")

	return cmd
}

func runRulesAdd(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetInt64("user")
	name, _ := cmd.Flags().GetString("name")
	conditions, _ := cmd.Flags().GetString("conditions")
	actions, _ := cmd.Flags().GetString("actions")
	priority, _ := cmd.Flags().GetInt("priority")

	rule := &model.Rule{
		UserID:     userID,
		Name:       name,
		Conditions: conditions,
		Actions:    actions,
		Priority:   priority,
		IsActive:   true,
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.CreateRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	fmt.Println(rule.ID)
	return nil
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, _ := cmd.Flags().GetInt64("user")

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			rules, err := store.ListRules(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			for _, r := range rules {
				state := "active"
				if !r.IsActive {
					state = "disabled"
				}
				name := r.Name
				if name == "" {
					name = "(unnamed)"
				}
				fmt.Printf("%d\t%d\t%s\t%s\n", r.ID, r.Priority, state, name)
			}
			return nil
		},
	}

	cmd.Flags().Int64("user", 1, "user ID owning the rules")
	return cmd
}

func rulesSetActiveCmd(verb string, active bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   verb + " <rule-id>",
		Short: capitalize(verb) + " a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetInt64("user")
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule ID %q", args[0])
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			return userFacing(store.SetRuleActive(ctx, id, userID, active), "rule "+args[0])
		},
	}

	cmd.Flags().Int64("user", 1, "user ID owning the rule")
	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetInt64("user")
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule ID %q", args[0])
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			return userFacing(store.DeleteRule(ctx, id, userID), "rule "+args[0])
		},
	}

	cmd.Flags().Int64("user", 1, "user ID owning the rule")
	return cmd
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
