package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/practice2025/supportai/internal/app"
	"github.com/practice2025/supportai/internal/server"
	"github.com/practice2025/supportai/internal/service"
)

var (
	askUser string
	askJSON bool
	askGRPC string
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Answer a support query",
	Long: `Answers a query through the same pipeline the service uses: the query cache first,
then the document store. With --grpc the query is sent to a running aisearchd instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askUser, "user", "u", "", "user id for per-user history")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the response as JSON")
	askCmd.Flags().StringVar(&askGRPC, "grpc", "", "address of a running aisearchd gRPC endpoint")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	req := service.AnswerRequest{
		Query:  strings.Join(args, " "),
		UserID: askUser,
	}

	var resp service.AnswerResponse
	if askGRPC != "" {
		conn, err := grpc.NewClient(askGRPC, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", askGRPC, err)
		}
		defer conn.Close()

		resp, err = server.NewAnswerClient(conn).Answer(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("answer failed: %w", err)
		}
	} else {
		err := withApp(cmd.Context(), func(a *app.App) error {
			resp = a.Service.Answer(cmd.Context(), req)
			return nil
		})
		if err != nil {
			return err
		}
	}

	if askJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, src := range resp.Sources {
			cmd.Printf("  [%d] %s (%.2f)\n", i+1, src.Title, src.Score)
			if src.URL != "" {
				cmd.Printf("      %s\n", src.URL)
			}
		}
	}
	return nil
}
