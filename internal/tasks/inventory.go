package tasks

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/Adda-Baaj/sepm-epm/pkg/sepm"
	"github.com/tidwall/gjson"
)

const idListWarning = "Unable to compile id_list"

// ComputersQuery filters the computers listing. Name and MAC accept '*' wildcards.
type ComputersQuery struct {
	Name   string
	Domain string
	MAC    string
	OS     []string `validate:"dive,oneof=CentOs Debian Fedora MacOSX Oracle OSX RedHat SUSE Ubuntu Win10 Win2K Win7 Win8 Win81 WinEmb7 WinEmb8 WinEmb81 WinFundamental WinNT Win2K3 Win2K8 Win2K8R2 Win2K12 Win2K12R2 Win2K16 WinVista WinXP WinXPEmb WinXPProf64"`
}

// Computers lists computers and their comma-separated uniqueId list.
func (r *Runner) Computers(ctx context.Context, q ComputersQuery) (*Result, error) {
	if err := r.check(TaskComputersInfo, q); err != nil {
		return nil, err
	}
	var osFilter any
	if len(q.OS) > 0 {
		osFilter = strings.Join(q.OS, ",")
	}
	resp, err := r.api.Execute(ctx, sepmGet(computersPath, map[string]any{
		"computerName": optional(q.Name),
		"domain":       optional(q.Domain),
		"mac":          optional(q.MAC),
		"os":           osFilter,
	}))
	content, err := pageContent(TaskComputersInfo, "Unable to query Computers data", resp, err)
	if err != nil {
		return nil, err
	}
	return r.done(r.listResult(TaskComputersInfo, "computers", content, resp.Raw, "content", "uniqueId")), nil
}

// GroupsQuery filters the groups listing.
type GroupsQuery struct {
	Domain string
}

// Groups lists groups and their comma-separated id list.
func (r *Runner) Groups(ctx context.Context, q GroupsQuery) (*Result, error) {
	resp, err := r.api.Execute(ctx, sepmGet(groupsPath, map[string]any{"domain": optional(q.Domain)}))
	content, err := pageContent(TaskGroupsInfo, "Unable to query groups data", resp, err)
	if err != nil {
		return nil, err
	}
	return r.done(r.listResult(TaskGroupsInfo, "groups", content, resp.Raw, "content", "id")), nil
}

// DomainsQuery selects one domain by ID instead of all domains.
type DomainsQuery struct {
	Domain string
}

// Domains lists domains and their comma-separated id list.
func (r *Runner) Domains(ctx context.Context, q DomainsQuery) (*Result, error) {
	path := domainsPath
	if q.Domain != "" {
		path += "/" + url.PathEscape(q.Domain)
	}
	resp, err := r.api.Execute(ctx, sepmGet(path, nil))
	if err != nil {
		return nil, &TaskError{Task: TaskDomainsInfo, Msg: "Unable to query domains data", SEPMData: bodyOf(resp), Err: err}
	}

	raw := resp.Raw
	var domains []any
	switch body := resp.Body.(type) {
	case []any:
		domains = body
	case map[string]any:
		if q.Domain == "" {
			return nil, &TaskError{Task: TaskDomainsInfo, Msg: "Unable to query domains data", SEPMData: body}
		}
		domains = []any{body}
		raw = append(append([]byte("["), raw...), ']')
	default:
		return nil, &TaskError{Task: TaskDomainsInfo, Msg: "Unable to query domains data", SEPMData: resp.Body}
	}
	return r.done(r.listResult(TaskDomainsInfo, "domains", domains, raw, "", "id")), nil
}

func (r *Runner) listResult(task, key string, items []any, raw []byte, listPath, idField string) *Result {
	res := &Result{Task: task, Data: map[string]any{key: items}}
	ids, ok := joinIDs(raw, listPath, idField)
	if !ok {
		r.log.WarnObj(idListWarning, "task", task)
		res.Warnings = append(res.Warnings, idListWarning)
	}
	res.Data["id_list"] = ids
	return res
}

func sepmGet(path string, params map[string]any) sepm.Request {
	return sepm.Request{Method: http.MethodGet, Path: path, Params: params}
}

// pageContent extracts the "content" array of a paged listing.
func pageContent(task, msg string, resp *sepm.Response, err error) ([]any, error) {
	if err != nil {
		return nil, &TaskError{Task: task, Msg: msg, SEPMData: bodyOf(resp), Err: err}
	}
	body, _ := resp.Body.(map[string]any)
	content, ok := body["content"].([]any)
	if !ok {
		return nil, &TaskError{Task: task, Msg: msg, SEPMData: resp.Body}
	}
	return content, nil
}

// joinIDs comma-joins field across the array at listPath (the document root
// when empty). Any element without the field yields ("", false).
func joinIDs(raw []byte, listPath, field string) (string, bool) {
	list := gjson.ParseBytes(raw)
	if listPath != "" {
		list = list.Get(listPath)
	}
	if !list.IsArray() {
		return "", false
	}
	items := list.Array()
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id := item.Get(field)
		if !id.Exists() {
			return "", false
		}
		ids = append(ids, id.String())
	}
	return strings.Join(ids, ","), true
}

func bodyOf(resp *sepm.Response) any {
	if resp == nil {
		return nil
	}
	return resp.Body
}
