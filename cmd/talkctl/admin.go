package main

import (
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/normalize"
	"github.com/talkboard/talkboard-web/internal/role"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Moderation commands (admins only)",
	}
	cmd.AddCommand(newAdminUsersCmd(a))
	cmd.AddCommand(newAdminRoleCmd(a))
	cmd.AddCommand(newAdminTagCmd(a))
	cmd.AddCommand(newAdminAnnounceCmd(a))
	cmd.AddCommand(newAdminReportedCmd(a))
	cmd.AddCommand(newAdminApproveCmd(a))
	cmd.AddCommand(newAdminDeleteCommentCmd(a))
	return cmd
}

func newAdminUsersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "users [query]",
		Short: "Search users by name or email",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := a.requireAdmin(cmd.Context())
			if err != nil {
				return err
			}

			var q string
			if len(args) > 0 {
				q = strings.TrimSpace(args[0])
			}
			if q == "" {
				pterm.Info.Println("No users found. Pass part of an email to search.")
				return nil
			}
			users, err := a.forum.SearchUsers(ctx, q)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				pterm.Info.Println("No users found")
				return nil
			}

			data := pterm.TableData{{"EMAIL", "NAME", "ROLE", "BADGE", "MEMBERSHIP"}}
			for _, u := range users {
				data = append(data, []string{u.Email, u.Name, string(u.Role), string(u.Badge), string(u.Membership)})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}
}

func newAdminRoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "role <email> <admin|user>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, creds, err := a.requireAdmin(cmd.Context())
			if err != nil {
				return err
			}

			email := normalize.Email(args[0])
			target := domain.Role(args[1])
			if target != domain.RoleAdmin && target != domain.RoleUser {
				return errors.Validationf("unknown role %q", args[1])
			}
			if email == normalize.Email(creds.Email) && target != domain.RoleAdmin {
				return errors.Validation("You cannot remove your own admin role.")
			}

			user, err := a.forum.GetUser(ctx, email)
			if err != nil {
				return err
			}
			if err := a.forum.SetRole(ctx, user.ID, target); err != nil {
				return err
			}
			a.cache.Invalidate(role.Key(email))

			pterm.Success.Printfln("%s is now %s", email, target)
			return nil
		},
	}
}

func newAdminTagCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <name>",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := a.requireAdmin(cmd.Context())
			if err != nil {
				return err
			}
			tag, err := a.forum.CreateTag(ctx, args[0])
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Tag %q created", tag.Name)
			return nil
		},
	}
}

func newAdminAnnounceCmd(a *app) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "announce",
		Short: "Publish a site announcement",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, creds, err := a.requireAdmin(cmd.Context())
			if err != nil {
				return err
			}
			if title == "" || description == "" {
				return errors.Validation("Title and description are required.")
			}

			err = a.forum.CreateAnnouncement(ctx, &domain.Announcement{
				AuthorName:  valueOr(creds.DisplayName, creds.Email),
				AuthorImage: creds.PhotoURL,
				Title:       title,
				Description: description,
				CreatedAt:   time.Now().UTC(),
			})
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Announcement %q published", title)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Announcement title")
	cmd.Flags().StringVar(&description, "description", "", "Announcement text")
	return cmd
}

func newAdminReportedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reported",
		Short: "List reported comments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, _, err := a.requireAdmin(cmd.Context())
			if err != nil {
				return err
			}
			comments, err := a.forum.ReportedComments(ctx)
			if err != nil {
				return err
			}
			if len(comments) == 0 {
				pterm.Info.Println("No reported comments")
				return nil
			}

			data := pterm.TableData{{"ID", "POST", "AUTHOR", "FEEDBACK", "COMMENT"}}
			for _, c := range comments {
				data = append(data, []string{c.ID, valueOr(c.PostTitle, c.PostID), c.UserEmail, c.Feedback, truncate(c.CommentText, 60)})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}
}

func newAdminApproveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <comment-id>",
		Short: "Clear the report on a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := a.requireAdmin(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.forum.ApproveComment(ctx, args[0]); err != nil {
				return err
			}
			pterm.Success.Printfln("Comment %s approved", args[0])
			return nil
		},
	}
}

func newAdminDeleteCommentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-comment <comment-id>",
		Short: "Delete a reported comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := a.requireAdmin(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.forum.DeleteComment(ctx, args[0]); err != nil {
				return err
			}
			pterm.Success.Printfln("Comment %s deleted", args[0])
			return nil
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
