package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GerritCodeReview/plugins-gitgroups/internal/gitrepo"
	"github.com/GerritCodeReview/plugins-gitgroups/internal/groups"
)

var (
	checkUser   string
	checkEmails []string
)

var checkCmd = &cobra.Command{
	Use:   "check <group-uuid>",
	Short: "Resolve a group once and optionally test a user against it",
	Long: `Resolves a group UUID such as git:project:groups/admins directly from
the repository and prints its members. With --user or --email the exit
status reports whether that identity is a member.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupUUID := args[0]
		if !groups.Handles(groupUUID) {
			return fmt.Errorf("not a git group UUID: %s", groupUUID)
		}

		manager := gitrepo.NewManager(cfg.BasePath)
		index := groups.NewRefIndex()
		loader := groups.NewLoader(manager, index, 0, log.Logger)

		list, err := loader.Load(cmd.Context(), groupUUID)
		if err != nil {
			return fmt.Errorf("cannot resolve %s: %w", groupUUID, err)
		}

		fmt.Printf("group:   %s\n", list.ID.DisplayName())
		fmt.Printf("ref:     %s (%s)\n", list.RefName, list.RefHash)
		fmt.Printf("file:    %s (%s)\n", list.ID.File, list.FileHash)
		fmt.Printf("members: %d\n", list.Len())
		for _, member := range list.Members() {
			fmt.Printf("  %s\n", member)
		}

		if checkUser == "" && len(checkEmails) == 0 {
			return nil
		}
		if list.Contains(checkUser, checkEmails) {
			fmt.Println("membership: yes")
			return nil
		}
		fmt.Println("membership: no")
		return fmt.Errorf("not a member")
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkUser, "user", "", "Username to test for membership")
	checkCmd.Flags().StringSliceVar(&checkEmails, "email", nil, "Email address to test for membership (repeatable)")
	rootCmd.AddCommand(checkCmd)
}
