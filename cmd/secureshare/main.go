package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"

	"secureshare/internal/access"
	"secureshare/internal/api"
	"secureshare/internal/audit"
	"secureshare/internal/config"
	"secureshare/internal/model"
	"secureshare/internal/otel"
	"secureshare/internal/session"
	"secureshare/internal/share"
	"secureshare/internal/state"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	shutdown, err := otel.Init(ctx)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	} else {
		defer func() { _ = shutdown(ctx) }()
	}

	metrics, err := api.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		log.Fatalf("secureshare: %v", err)
	}

	sess := session.Load(cfg.SessionPath)
	client := api.New(cfg.API, sess, metrics)

	a := &app{sess: sess, client: client}
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("secureshare: %v", err)
	}
}

type app struct {
	sess   *session.Session
	client *api.Client
}

// run dispatches the command and applies the session rule shared by
// every store path: a rejected credential is terminal, whichever call
// surfaced it.
func (a *app) run(ctx context.Context, cmd string, args []string) error {
	err := a.dispatch(ctx, cmd, args)
	if errors.Is(err, api.ErrUnauthorized) {
		_ = a.sess.Logout()
	}
	return err
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami()
	case "list":
		return a.list(ctx, args)
	case "upload":
		return a.upload(ctx, args)
	case "download":
		return a.download(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "share":
		return a.share(ctx, args)
	case "audit":
		return a.audit(ctx)
	case "folders":
		return a.folders(ctx, args)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: secureshare <command> [flags]

commands:
  register   create an account (--name, --email, --password)
  login      sign in and persist the session (--email, --password)
  logout     clear the persisted session
  whoami     show the active session
  list       list documents (--filter substring)
  upload     upload a file: upload <path>
  download   download a document: download <id> [--out path]
  delete     delete an owned document: delete <id>
  share      grant access: share <id> --to <email> --level view|edit
  audit      show the audit trail (admin only)
  folders    list folders (--create name | --delete id)`)
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("register: --email and --password are required")
	}

	if err := a.client.Register(ctx, *name, *email, *password); err != nil {
		return err
	}
	fmt.Printf("registered %s\n", *email)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login: --email and --password are required")
	}

	cred, profile, err := a.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := a.sess.Establish(cred, profile); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", profile.Email)
	return nil
}

func (a *app) logout() error {
	if err := a.sess.Logout(); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func (a *app) whoami() error {
	if !a.sess.Active() {
		fmt.Println("not logged in")
		return nil
	}
	profile := a.sess.Profile()
	id := a.sess.Identity()
	fmt.Printf("%s (%s)\n", profile.Email, profile.ID)
	if audit.IsPrivileged(id) {
		fmt.Println("roles: " + strings.Join(id.Roles, ", "))
	}
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	filter := fs.String("filter", "", "case-insensitive name substring")
	if err := fs.Parse(args); err != nil {
		return err
	}

	docs, err := a.client.ListDocuments(ctx)
	if err != nil {
		return err
	}
	docs = access.FilterByName(docs, *filter)

	p := access.PartitionDocuments(a.sess.Identity(), docs)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	printDocs(w, "owned", p.Owned)
	printDocs(w, "shared with me", p.SharedWithMe)
	return w.Flush()
}

func printDocs(w io.Writer, heading string, docs []model.Document) {
	fmt.Fprintf(w, "%s (%d)\n", heading, len(docs))
	for _, d := range docs {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
			d.ID, d.DisplayName, humanize.Bytes(uint64(d.SizeBytes)), humanize.Time(d.CreatedAt))
	}
}

func (a *app) upload(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("upload: a file path is required")
	}
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := a.client.UploadDocument(ctx, f, name, contentType)
	if err != nil {
		return err
	}
	fmt.Printf("uploaded %s (%s) as %s\n", doc.DisplayName, humanize.Bytes(uint64(doc.SizeBytes)), doc.ID)
	return nil
}

func (a *app) download(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	out := fs.String("out", "", "output path (defaults to the document id)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("download: a document id is required")
	}
	id := fs.Arg(0)
	if *out == "" {
		*out = id
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := a.client.DownloadDocument(ctx, id, f)
	if err != nil {
		return err
	}
	fmt.Printf("downloaded %s to %s\n", humanize.Bytes(uint64(n)), *out)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("delete: a document id is required")
	}

	rec := a.reconciler()
	if err := rec.Refresh(ctx); err != nil {
		return err
	}
	if err := rec.ApplyDelete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func (a *app) share(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("share", flag.ExitOnError)
	to := fs.String("to", "", "recipient email")
	level := fs.String("level", string(model.AccessView), "access level: view or edit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("share: a document id is required")
	}

	rec := a.reconciler()
	w := share.New(a.client)
	w.OnSuccess(func(ctx context.Context) { _ = rec.ApplyShareSuccess(ctx) })
	w.OnUnauthorized(func() { _ = a.sess.Logout() })

	err := w.Submit(ctx, fs.Arg(0), *to, model.AccessLevel(*level))
	if err != nil {
		return fmt.Errorf("share failed: %w", err)
	}
	fmt.Printf("shared %s with %s (%s)\n", fs.Arg(0), *to, *level)
	return nil
}

func (a *app) audit(ctx context.Context) error {
	v := audit.NewViewer(a.client, a.sess.Identity)
	view, err := v.Load(ctx)
	if err != nil {
		return err
	}
	if view.Denied {
		fmt.Println("audit trail requires the admin role")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range view.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s/%s\t%s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Actor.Email, e.Action,
			e.ResourceType, e.ResourceID, e.Status)
	}
	return w.Flush()
}

func (a *app) folders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("folders", flag.ExitOnError)
	create := fs.String("create", "", "create a folder with the given name")
	remove := fs.String("delete", "", "delete the folder with the given id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *create != "":
		f, err := a.client.CreateFolder(ctx, *create)
		if err != nil {
			return err
		}
		fmt.Printf("created %s as %s\n", f.Path, f.ID)
		return nil
	case *remove != "":
		if err := a.client.DeleteFolder(ctx, *remove); err != nil {
			return err
		}
		fmt.Printf("deleted folder %s\n", *remove)
		return nil
	default:
		folders, err := a.client.ListFolders(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, f := range folders {
			fmt.Fprintf(w, "%s\t%s\t%s\n", f.ID, f.Path, humanize.Time(f.CreatedAt))
		}
		return w.Flush()
	}
}

// reconciler builds the local document view bound to the session: any
// unauthorized response tears the session down alongside the state.
func (a *app) reconciler() *state.Reconciler {
	return state.New(a.client, func() { _ = a.sess.Logout() })
}
