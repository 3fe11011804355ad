package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/derekvan/canvas-markdown-tools/authutils"
	"github.com/derekvan/canvas-markdown-tools/canvas"
	"github.com/derekvan/canvas-markdown-tools/config"
	"github.com/derekvan/canvas-markdown-tools/coursemd"
	"github.com/derekvan/canvas-markdown-tools/extfmt"
	"github.com/derekvan/canvas-markdown-tools/links"
	"github.com/derekvan/canvas-markdown-tools/recon"
	"github.com/derekvan/canvas-markdown-tools/syncserver"
)

var Log = config.Cfg().GetLogger()

var (
	app = kingpin.New("canvasmd", "Sync markdown course documents with Canvas LMS courses.")

	pushCmd    = app.Command("push", "Sync a course document into its Canvas course.")
	pushFile   = pushCmd.Flag("file", "Course document path.").Short('f').Default(config.Cfg().CourseFilePath).String()
	pushDryRun = pushCmd.Flag("dry-run", "Show what would change without writing to Canvas.").Bool()
	pushYes    = pushCmd.Flag("yes", "Apply without the confirmation prompt.").Short('y').Bool()

	pullCmd   = app.Command("pull", "Download a Canvas course into a course document.")
	pullURI   = pullCmd.Arg("course", "Course address, canvas://host/courseID.").Required().String()
	pullOut   = pullCmd.Flag("out", "Output document path.").Short('o').Default("course.md").String()
	pullForce = pullCmd.Flag("force", "Overwrite the output file if it exists.").Bool()

	planCmd  = app.Command("plan", "Show what push would change.")
	planFile = planCmd.Flag("file", "Course document path.").Short('f').Default(config.Cfg().CourseFilePath).String()

	verifyCmd  = app.Command("verify", "Parse a course document and check its internal links, offline.")
	verifyFile = verifyCmd.Flag("file", "Course document path.").Short('f').Default(config.Cfg().CourseFilePath).String()

	authCmd    = app.Command("auth", "Store a Canvas API token in the OS keychain.")
	authURL    = authCmd.Arg("base-url", "Canvas instance base URL, e.g. https://canvas.example.edu.").Required().String()
	authToken  = authCmd.Flag("token", "API token. Prompted for when omitted.").String()
	authDelete = authCmd.Flag("delete", "Delete the stored token instead.").Bool()

	serveCmd = app.Command("serve", "Run the repo webhook sync server.")
)

func init() {
	extfmt.RegisterExtFmt("md", coursemd.NewMDFormat())
	extfmt.RegisterExtFmt("canvas", canvas.NewCanvasFormat())
}

func main() {
	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case pushCmd.FullCommand():
		runPush(*pushFile, *pushDryRun, *pushYes)
	case pullCmd.FullCommand():
		runPull(*pullURI, *pullOut, *pullForce)
	case planCmd.FullCommand():
		runPush(*planFile, true, false)
	case verifyCmd.FullCommand():
		runVerify(*verifyFile)
	case authCmd.FullCommand():
		runAuth(*authURL, *authToken, *authDelete)
	case serveCmd.FullCommand():
		syncserver.Serve()
	}
}

// signalContext cancels on the first interrupt so a sync stops issuing new
// requests and the already-assigned annotations still get written back.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		Log.Warn("Interrupted, finishing up")
		cancel()
	}()
	return ctx, cancel
}

func runPush(file string, dryRun, yes bool) {
	course, err := coursemd.NewMDFormat().Import(file)
	if err != nil {
		Log.Fatal(err)
	}
	client, err := canvas.ClientForCourse(course)
	if err != nil {
		Log.Fatal(err)
	}
	ctx, cancel := signalContext()
	defer cancel()

	plan, err := canvas.Plan(ctx, client, course)
	if err != nil {
		Log.Fatal(err)
	}
	printPlan(plan)
	if dryRun {
		return
	}
	if plan.Changes() == 0 {
		fmt.Println("Nothing to do.")
		return
	}
	if !yes && !confirm(fmt.Sprintf("Apply %d change(s) to course %s?", plan.Changes(), client.CourseID())) {
		fmt.Println("Aborted.")
		return
	}

	sum, err := canvas.Push(ctx, client, course)
	if err != nil {
		Log.Fatal(err)
	}
	if err := coursemd.NewMDFormat().Export(course, file, true); err != nil {
		Log.Fatal(err)
	}
	printSummary(sum)
	if sum.Failed > 0 {
		os.Exit(1)
	}
}

func runPull(uri, out string, force bool) {
	course, err := extfmt.ImportCourse("canvas", uri)
	if err != nil {
		Log.Fatal(err)
	}
	if err := extfmt.ExportCourse("md", course, out, force); err != nil {
		Log.Fatal(err)
	}
	fmt.Printf("Wrote %d modules, %d items to %s\n", len(course.Modules), course.ItemCount(), out)
}

func runVerify(file string) {
	course, err := coursemd.NewMDFormat().Import(file)
	if err != nil {
		Log.Fatal(err)
	}
	res := links.NewResolver(course, course.Meta.CanvasURL, course.Meta.CourseID)
	if err := res.Check(course); err != nil {
		Log.Fatal(err)
	}
	fmt.Printf("OK: %d modules, %d items, all internal links resolve\n", len(course.Modules), course.ItemCount())
}

func runAuth(baseURL, token string, del bool) {
	baseURL = strings.TrimRight(baseURL, "/")
	if del {
		if err := authutils.DeleteToken(baseURL); err != nil {
			Log.Fatal(err)
		}
		return
	}
	if token == "" {
		fmt.Print("API token: ")
		sc := bufio.NewScanner(os.Stdin)
		if sc.Scan() {
			token = strings.TrimSpace(sc.Text())
		}
	}
	if token == "" {
		Log.Fatal("No token provided")
	}
	if err := authutils.SaveToken(baseURL, token); err != nil {
		Log.Fatal(err)
	}
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(sc.Text()))
	return answer == "y" || answer == "yes"
}

func printPlan(plan *recon.Plan) {
	for _, op := range plan.Ops {
		if op.Action == recon.ActionNone {
			continue
		}
		line := fmt.Sprintf("%-7s %-12s %s", op.Action.String(), op.Entity, op.Title)
		if len(op.Fields) > 0 {
			line += " (" + strings.Join(op.Fields, ", ") + ")"
		}
		if op.Reason != "" {
			line += " [" + op.Reason + "]"
		}
		fmt.Println(line)
	}
	fmt.Printf("Plan: %d change(s)\n", plan.Changes())
}

func printSummary(sum *recon.Summary) {
	for _, o := range sum.Outcomes {
		if o.Err != nil {
			fmt.Printf("FAILED  %-12s %s: %s\n", o.Entity, o.Title, o.Err.Error())
		}
	}
	fmt.Printf("Done: %d created, %d updated, %d unchanged, %d skipped, %d failed\n",
		sum.Created, sum.Updated, sum.Unchanged, sum.Skipped, sum.Failed)
}
