package dashboard

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/tkingovr/xapictl/api"
)

var funcMap = template.FuncMap{
	"upper":        strings.ToUpper,
	"verdictColor": verdictColor,
	"outcomeColor": outcomeColor,
	"truncate":     truncate,
}

var pageTmpls = map[string]*template.Template{
	"overview": template.Must(template.New("overview").Funcs(funcMap).Parse(navHTML + overviewHTML)),
	"audit":    template.Must(template.New("audit").Funcs(funcMap).Parse(navHTML + auditHTML)),
	"policy":   template.Must(template.New("policy").Funcs(funcMap).Parse(navHTML + policyHTML)),
}

func renderPage(w http.ResponseWriter, name string, data map[string]any) {
	tmpl, ok := pageTmpls[name]
	if !ok {
		http.Error(w, "unknown page: "+name, http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func verdictColor(v api.Verdict) string {
	switch v {
	case api.VerdictAllow:
		return "bg-green-900 text-green-300"
	case api.VerdictDeny:
		return "bg-red-900 text-red-300"
	case api.VerdictAsk:
		return "bg-yellow-900 text-yellow-300"
	case api.VerdictLog:
		return "bg-blue-900 text-blue-300"
	default:
		return "bg-gray-700 text-gray-300"
	}
}

func outcomeColor(o api.Outcome) string {
	switch o {
	case api.OutcomeSuccess:
		return "text-green-400"
	case api.OutcomeFailure:
		return "text-red-400"
	case api.OutcomeBlocked:
		return "text-yellow-400"
	default:
		return "text-gray-400"
	}
}

func truncate(max int, s string) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

const navHTML = `{{define "nav"}}
<nav class="bg-gray-900 border-b border-gray-700 px-6 py-4">
    <div class="flex items-center justify-between max-w-7xl mx-auto">
        <div class="flex items-center space-x-2">
            <span class="text-xl font-bold text-white">xapictl</span>
            <span class="text-xs bg-gray-700 text-gray-300 px-2 py-1 rounded">Dashboard</span>
        </div>
        <div class="flex space-x-4">
            <a href="/" class="px-3 py-2 rounded hover:bg-gray-800 {{if eq .Page "overview"}}bg-gray-800 text-white{{else}}text-gray-400{{end}}">Overview</a>
            <a href="/audit" class="px-3 py-2 rounded hover:bg-gray-800 {{if eq .Page "audit"}}bg-gray-800 text-white{{else}}text-gray-400{{end}}">History</a>
            <a href="/policy" class="px-3 py-2 rounded hover:bg-gray-800 {{if eq .Page "policy"}}bg-gray-800 text-white{{else}}text-gray-400{{end}}">Profile</a>
        </div>
    </div>
</nav>
{{end}}`

const headHTML = `<!DOCTYPE html>
<html lang="en" class="dark">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>xapictl Dashboard</title>
    <script src="https://cdn.tailwindcss.com"></script>
    <script src="https://unpkg.com/htmx.org@2.0.4"></script>
    <style>body { background-color: #0f172a; color: #e2e8f0; }</style>
</head>
<body class="min-h-screen">
{{template "nav" .}}
<main class="max-w-7xl mx-auto px-6 py-8">`

const footHTML = `</main>
</body>
</html>`

const overviewHTML = headHTML + `
<h1 class="text-2xl font-bold mb-6">Overview</h1>
<div class="grid grid-cols-1 md:grid-cols-4 gap-6 mb-8">
    <div class="bg-gray-900 border border-gray-700 rounded-lg p-6">
        <div class="text-gray-400 text-sm mb-1">Total Calls</div>
        <div class="text-3xl font-bold text-white">{{.Stats.TotalCalls}}</div>
    </div>
    <div class="bg-gray-900 border border-green-900 rounded-lg p-6">
        <div class="text-green-400 text-sm mb-1">Succeeded</div>
        <div class="text-3xl font-bold text-green-300">{{.Stats.SuccessCount}}</div>
    </div>
    <div class="bg-gray-900 border border-red-900 rounded-lg p-6">
        <div class="text-red-400 text-sm mb-1">Failed</div>
        <div class="text-3xl font-bold text-red-300">{{.Stats.FailureCount}}</div>
    </div>
    <div class="bg-gray-900 border border-yellow-900 rounded-lg p-6">
        <div class="text-yellow-400 text-sm mb-1">Blocked</div>
        <div class="text-3xl font-bold text-yellow-300">{{.Stats.BlockedCount}}</div>
    </div>
</div>
<div class="grid grid-cols-1 md:grid-cols-2 gap-6">
    <div class="bg-gray-900 border border-gray-700 rounded-lg p-6">
        <h2 class="text-lg font-bold mb-4">By Call</h2>
        {{range $call, $count := .Stats.ByCall}}
        <div class="flex justify-between py-1 border-b border-gray-800">
            <span class="text-gray-300 font-mono text-sm">{{$call}}</span>
            <span class="text-gray-400">{{$count}}</span>
        </div>
        {{else}}<p class="text-gray-500">No data yet</p>{{end}}
    </div>
    <div class="bg-gray-900 border border-gray-700 rounded-lg p-6">
        <h2 class="text-lg font-bold mb-4">By Error Kind</h2>
        {{range $kind, $count := .Stats.ByErrorKind}}
        <div class="flex justify-between py-1 border-b border-gray-800">
            <span class="text-gray-300 font-mono text-sm">{{$kind}}</span>
            <span class="text-gray-400">{{$count}}</span>
        </div>
        {{else}}<p class="text-gray-500">No errors</p>{{end}}
        <div class="mt-4 text-sm text-gray-400">
            allow {{.Stats.AllowCount}} / deny {{.Stats.DenyCount}} / ask {{.Stats.AskCount}} / log {{.Stats.LogCount}}
        </div>
    </div>
</div>
` + footHTML

const auditHTML = headHTML + `
<div class="flex justify-between items-center mb-6">
    <h1 class="text-2xl font-bold">History</h1>
    <form hx-get="/audit" hx-target="body" hx-push-url="true" class="flex space-x-2 text-sm">
        <input name="class" value="{{.Filter.Class}}" placeholder="class" class="bg-gray-800 rounded px-2 py-1">
        <input name="method" value="{{.Filter.Method}}" placeholder="method" class="bg-gray-800 rounded px-2 py-1">
        <input name="since" placeholder="24h" class="bg-gray-800 rounded px-2 py-1 w-20">
        <button class="px-3 py-1 bg-gray-700 rounded">Filter</button>
    </form>
</div>
<div class="bg-gray-900 border border-gray-700 rounded-lg overflow-hidden">
    <table class="w-full text-sm text-left">
        <thead class="bg-gray-800 text-gray-400 uppercase text-xs">
            <tr>
                <th class="px-4 py-3">Time</th>
                <th class="px-4 py-3">Host</th>
                <th class="px-4 py-3">Call</th>
                <th class="px-4 py-3">Arguments</th>
                <th class="px-4 py-3">Verdict</th>
                <th class="px-4 py-3">Outcome</th>
                <th class="px-4 py-3">Rule</th>
            </tr>
        </thead>
        <tbody id="audit-table">
            {{range .Records}}
            <tr class="border-b border-gray-700 hover:bg-gray-800">
                <td class="px-4 py-2 text-gray-400 text-xs">{{.Timestamp.Format "2006-01-02 15:04:05"}}</td>
                <td class="px-4 py-2 text-gray-400 text-xs">{{.User}}@{{.Host}}</td>
                <td class="px-4 py-2 font-mono">{{.Call}}</td>
                <td class="px-4 py-2 font-mono text-xs max-w-xs truncate">{{truncate 80 (printf "%s" .Arguments)}}</td>
                <td class="px-4 py-2"><span class="px-2 py-1 rounded text-xs font-bold {{verdictColor .Verdict}}">{{upper (printf "%s" .Verdict)}}</span></td>
                <td class="px-4 py-2 text-xs {{outcomeColor .Outcome}}" title="{{.Error}}">{{.Outcome}}{{if .ErrorKind}} ({{.ErrorKind}}){{end}}</td>
                <td class="px-4 py-2 text-gray-400 text-xs">{{.Rule}}</td>
            </tr>
            {{else}}
            <tr><td colspan="7" class="px-4 py-8 text-center text-gray-500">No calls recorded</td></tr>
            {{end}}
        </tbody>
    </table>
</div>
` + footHTML

const policyHTML = headHTML + `
<h1 class="text-2xl font-bold mb-6">Active Profile</h1>
{{if .ProfilePath}}<p class="text-gray-400 text-sm mb-4">Loaded from <span class="font-mono">{{.ProfilePath}}</span></p>
{{else}}<p class="text-gray-400 text-sm mb-4">No profile given; built-in defaults allow every call.</p>{{end}}
{{if .OPAPolicy}}<p class="text-gray-400 text-sm mb-4">Verdicts come from the Rego policy <span class="font-mono">{{.OPAPolicy}}</span></p>{{end}}
<div class="bg-gray-900 border border-gray-700 rounded-lg p-6">
    {{if .PolicyYAML}}<pre class="font-mono text-sm text-gray-300 whitespace-pre-wrap">{{.PolicyYAML}}</pre>
    {{else}}<p class="text-gray-500">No rules.</p>{{end}}
</div>
` + footHTML
