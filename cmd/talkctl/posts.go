package main

import (
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/talkboard/talkboard-web/internal/apiclient"
	"github.com/talkboard/talkboard-web/internal/domain"
)

func newPostsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Browse forum posts",
	}
	cmd.AddCommand(newPostsListCmd(a))
	cmd.AddCommand(newPostsSearchCmd(a))
	cmd.AddCommand(newPostsMineCmd(a))
	return cmd
}

func newPostsListCmd(a *app) *cobra.Command {
	var (
		sort string
		page int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest or most popular first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			posts, err := a.forum.Public().ListPosts(cmd.Context(), apiclient.ListPostsParams{
				Sort: domain.ParsePostSort(sort),
				Page: max(page, 1),
			})
			if err != nil {
				return err
			}
			return renderPosts(posts)
		},
	}

	cmd.Flags().StringVar(&sort, "sort", string(domain.SortNewest), "Sort order: newest or popular")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}

func newPostsSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <tag>",
		Short: "Find posts by tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := a.forum.Public().SearchPosts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderPosts(posts)
		},
	}
}

func newPostsMineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your own posts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, creds, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			posts, err := a.forum.UserPosts(ctx, creds.Email, 0)
			if err != nil {
				return err
			}
			return renderPosts(posts)
		},
	}
}

func renderPosts(posts []domain.Post) error {
	if len(posts) == 0 {
		pterm.Info.Println("No posts found")
		return nil
	}

	data := pterm.TableData{{"ID", "TITLE", "AUTHOR", "VOTES", "COMMENTS", "CREATED"}}
	for _, p := range posts {
		data = append(data, []string{
			p.ID,
			p.Title,
			p.AuthorName,
			strconv.Itoa(p.Score()),
			strconv.Itoa(p.CommentCount),
			p.CreatedAt.Local().Format(time.DateOnly),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
