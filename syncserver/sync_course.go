package syncserver

import (
	"encoding/json"
	"net/http"

	"github.com/exlinc/golang-utils/jsonhttp"

	"github.com/derekvan/canvas-markdown-tools/canvas"
	"github.com/derekvan/canvas-markdown-tools/coursemd"
	"github.com/derekvan/canvas-markdown-tools/recon"
)

type syncCourseRequest struct {
	Document string `json:"document"`
	DryRun   bool   `json:"dry_run"`
}

type syncCourseResponse struct {
	Plan    *recon.Plan    `json:"plan,omitempty"`
	Summary *recon.Summary `json:"summary,omitempty"`
	// Document is the re-serialized course with the annotations the sync
	// assigned, for the caller to store.
	Document string `json:"document,omitempty"`
}

// syncCourse takes a course document in the request body and syncs it into
// the course named by its frontmatter. With dry_run it only reports the plan.
func syncCourse(w http.ResponseWriter, r *http.Request) {
	reqObj := syncCourseRequest{}
	if err := json.NewDecoder(r.Body).Decode(&reqObj); err != nil {
		jsonhttp.JSONBadRequestError(w, "Invalid JSON", "")
		return
	}
	course, err := coursemd.Parse(reqObj.Document)
	if err != nil {
		jsonhttp.JSONBadRequestError(w, "Invalid course document", err.Error())
		return
	}
	client, err := canvas.ClientForCourse(course)
	if err != nil {
		jsonhttp.JSONBadRequestError(w, "No course target", err.Error())
		return
	}

	if reqObj.DryRun {
		plan, err := canvas.Plan(r.Context(), client, course)
		if err != nil {
			Log.Error("Course plan failed: ", err)
			jsonhttp.JSONInternalError(w, "An error occurred planning the sync", err.Error())
			return
		}
		jsonhttp.JSONSuccess(w, syncCourseResponse{Plan: plan}, "Plan computed")
		return
	}

	sum, err := canvas.Push(r.Context(), client, course)
	if err != nil {
		Log.Error("Course sync failed: ", err)
		jsonhttp.JSONInternalError(w, "An error occurred syncing the course", err.Error())
		return
	}
	jsonhttp.JSONSuccess(w, syncCourseResponse{Summary: sum, Document: coursemd.Serialize(course)}, "Course synced")
}
