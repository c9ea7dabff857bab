package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	Token     string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	var (
		baseURL = envOr("POSTPILOT_URL", "http://localhost:8080")
		token   = envOr("POSTPILOT_TOKEN", "")
		out     = envOr("POSTPILOT_OUT", "text")
		timeout = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "postpilotctl",
		Short: "CLI de operación para PostPilot",
	}

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del API (env POSTPILOT_URL)")
	root.PersistentFlags().StringVar(&token, "token", token, "Bearer token del tenant (env POSTPILOT_TOKEN)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{HTTP: &http.Client{Timeout: timeout}}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cl.BaseURL, cl.Token, cl.OutFormat = baseURL, token, out
	}

	// providers: proveedores configurados
	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "Lista los proveedores OAuth configurados",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/oauth/providers", nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	// connect <platform>: URL de autorización
	connectCmd := &cobra.Command{
		Use:   "connect <platform>",
		Short: "Inicia la conexión OAuth de una plataforma",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/oauth/"+args[0]+"/authorize", nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	// disconnect <provider>
	disconnectCmd := &cobra.Command{
		Use:   "disconnect <provider>",
		Short: "Desactiva la credencial activa de un proveedor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("DELETE", "/oauth/"+args[0], nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	// publish
	var (
		pubPlatform  string
		pubBody      string
		pubTitle     string
		pubSubreddit string
		pubLink      string
		pubMedia     []string
		pubAt        string
	)
	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Publica contenido ya mismo o lo programa con --at",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"platform": pubPlatform,
				"content": map[string]any{
					"body":       pubBody,
					"title":      pubTitle,
					"subreddit":  pubSubreddit,
					"link_url":   pubLink,
					"media_urls": pubMedia,
				},
			}
			if pubAt != "" {
				t, err := time.Parse(time.RFC3339, pubAt)
				if err != nil {
					return fmt.Errorf("--at debe ser RFC3339: %w", err)
				}
				payload["scheduled_at"] = t
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl.do("POST", "/publish", b)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	publishCmd.Flags().StringVar(&pubPlatform, "platform", "", "plataforma destino (twitter, reddit, ...)")
	publishCmd.Flags().StringVar(&pubBody, "body", "", "texto del post")
	publishCmd.Flags().StringVar(&pubTitle, "title", "", "título (reddit, pinterest, youtube)")
	publishCmd.Flags().StringVar(&pubSubreddit, "subreddit", "", "subreddit destino, sin el prefijo r/")
	publishCmd.Flags().StringVar(&pubLink, "link", "", "URL a enlazar")
	publishCmd.Flags().StringSliceVar(&pubMedia, "media", nil, "URLs de media")
	publishCmd.Flags().StringVar(&pubAt, "at", "", "programar para este instante (RFC3339)")
	_ = publishCmd.MarkFlagRequired("platform")

	// post <id>: estado de un post
	postCmd := &cobra.Command{
		Use:   "post <id>",
		Short: "Muestra el estado de un post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/posts/"+args[0], nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	// status: snapshot del scheduler
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Estado del scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/scheduler/status", nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	root.AddCommand(providersCmd, connectCmd, disconnectCmd, publishCmd, postCmd, statusCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
