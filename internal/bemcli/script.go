// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package bemcli

import (
	"fmt"
	"strings"
)

// psQuote escapes a value for a single-quoted PowerShell string. Single
// quotes are escaped by doubling them; nothing else is special inside
// single quotes.
func psQuote(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// scriptPreamble imports BEMCLI from the resolved module path and makes
// every cmdlet error terminating so failed calls surface as nonzero exits.
func scriptPreamble(modulePath string) string {
	return strings.Join([]string{
		"$ErrorActionPreference = 'Stop'",
		"$ProgressPreference = 'SilentlyContinue'",
		fmt.Sprintf("Import-Module '%s' -Force", psQuote(modulePath)),
	}, "\n")
}

func lookupJobScript(modulePath, name string) string {
	return scriptPreamble(modulePath) + "\n" + fmt.Sprintf(strings.Join([]string{
		"$job = Get-BEJob -Name '%s' -ErrorAction SilentlyContinue",
		"if (-not $job) { [pscustomobject]@{ found = $false } | ConvertTo-Json; exit 0 }",
		"[pscustomobject]@{ found = $true; name = $job.Name; status = [string]$job.Status; jobType = [string]$job.JobType } | ConvertTo-Json",
	}, "\n"), psQuote(name))
}

func startJobScript(modulePath, name string) string {
	return scriptPreamble(modulePath) + "\n" + fmt.Sprintf(strings.Join([]string{
		"Get-BEJob -Name '%s' | Start-BEJob -Confirm:$false | Out-Null",
		"[pscustomobject]@{ started = $true } | ConvertTo-Json",
	}, "\n"), psQuote(name))
}

func lastHistoryScript(modulePath, jobName string) string {
	return scriptPreamble(modulePath) + "\n" + fmt.Sprintf(strings.Join([]string{
		"$h = Get-BEJob -Name '%s' | Get-BEJobHistory | Sort-Object -Property StartTime -Descending | Select-Object -First 1",
		"if (-not $h) { [pscustomobject]@{ found = $false } | ConvertTo-Json; exit 0 }",
		"[pscustomobject]@{ found = $true; id = [string]$h.Id; jobName = [string]$h.JobName; status = [string]$h.JobStatus; startTime = $h.StartTime.ToString('o'); endTime = $h.EndTime.ToString('o') } | ConvertTo-Json",
	}, "\n"), psQuote(jobName))
}

func renderLogScript(modulePath, historyID string) string {
	return scriptPreamble(modulePath) + "\n" + fmt.Sprintf(strings.Join([]string{
		"$h = Get-BEJobHistory | Where-Object { [string]$_.Id -eq '%s' } | Select-Object -First 1",
		"if (-not $h) { [pscustomobject]@{ found = $false } | ConvertTo-Json; exit 0 }",
		"$log = $h | Get-BEJobLog",
		"$rows = $log -split \"`r?`n\" | ForEach-Object { [pscustomobject]@{ Line = $_ } }",
		"$html = ($rows | ConvertTo-Html -Fragment) -join \"`n\"",
		"[pscustomobject]@{ found = $true; html = $html } | ConvertTo-Json -Depth 3",
	}, "\n"), psQuote(historyID))
}

func submitRestoreScript(modulePath, jobName, redirectPath string) string {
	return scriptPreamble(modulePath) + "\n" + fmt.Sprintf(strings.Join([]string{
		"$h = Get-BEJob -Name '%s' | Get-BEJobHistory | Sort-Object -Property StartTime -Descending | Select-Object -First 1",
		"if (-not $h) { [pscustomobject]@{ found = $false } | ConvertTo-Json; exit 0 }",
		"$r = $h | Submit-BEFileSystemRestoreJob -RedirectToPath '%s' -Confirm:$false",
		"[pscustomobject]@{ found = $true; name = $r.Name; status = [string]$r.Status } | ConvertTo-Json",
	}, "\n"), psQuote(jobName), psQuote(redirectPath))
}

func generateReportScript(modulePath, reportName, outDir string) string {
	return scriptPreamble(modulePath) + "\n" + fmt.Sprintf(strings.Join([]string{
		"Get-BEReport -Name '%s' | Export-BEReport -FileFormat Html -Path '%s' | Out-Null",
		"[pscustomobject]@{ generated = $true } | ConvertTo-Json",
	}, "\n"), psQuote(reportName), psQuote(outDir))
}

func deleteAllHistoryScript(modulePath string) string {
	return scriptPreamble(modulePath) + "\n" + strings.Join([]string{
		"$names = @()",
		"Get-BEJob | ForEach-Object {",
		"  $h = $_ | Get-BEJobHistory -ErrorAction SilentlyContinue",
		"  if ($h) { $h | Remove-BEJobHistory -Confirm:$false; $names += $_.Name }",
		"}",
		"[pscustomobject]@{ jobs = @($names) } | ConvertTo-Json -Depth 3",
	}, "\n")
}

// serviceStateScript deliberately skips the BEMCLI import: daemon probes go
// through Get-Service and must work while Backup Exec itself is down.
func serviceStateScript(serviceName string) string {
	return strings.Join([]string{
		"$ErrorActionPreference = 'Stop'",
		"$ProgressPreference = 'SilentlyContinue'",
		fmt.Sprintf("$s = Get-Service -Name '%s' -ErrorAction SilentlyContinue", psQuote(serviceName)),
		"if (-not $s) { [pscustomobject]@{ found = $false; status = '' } | ConvertTo-Json; exit 0 }",
		"[pscustomobject]@{ found = $true; status = [string]$s.Status } | ConvertTo-Json",
	}, "\n")
}

// searchPatterns expands a query path into the candidate patterns to try,
// mirroring how operators actually locate data: the exact path, prefix and
// substring wildcards, the drive-less form and the basename.
func searchPatterns(path string) []string {
	if path == "" {
		return []string{"*"}
	}

	var patterns []string
	seen := make(map[string]struct{})
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		patterns = append(patterns, p)
	}

	add(path)
	hasWildcard := strings.ContainsAny(path, "*?")
	if !hasWildcard {
		add(path + "*")
		add("*" + path + "*")
	}

	// Drive-less form: D:\toBackup -> toBackup
	if len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/') {
		driveless := path[3:]
		add(driveless)
		if !strings.ContainsAny(driveless, "*?") {
			add(driveless + "*")
		}
	}

	// Basename pattern: \\server\share\folder -> folder*
	if idx := strings.LastIndexAny(path, `\/`); idx >= 0 && idx+1 < len(path) {
		leaf := path[idx+1:]
		if !strings.ContainsAny(leaf, "*?") {
			add(leaf + "*")
		}
	}

	return patterns
}

func searchCatalogScript(modulePath string, q SearchQuery) string {
	patterns := searchPatterns(q.Path)
	quoted := make([]string, len(patterns))
	for i, p := range patterns {
		quoted[i] = "'" + psQuote(p) + "'"
	}

	lines := []string{
		scriptPreamble(modulePath),
		fmt.Sprintf("$patterns = @(%s)", strings.Join(quoted, ", ")),
		"$from = (Get-Date).AddYears(-20)",
		"$to = (Get-Date).AddDays(1)",
	}
	if q.AgentServer != "" {
		lines = append(lines, fmt.Sprintf("$servers = @(Get-BEAgentServer -Name '%s')", psQuote(q.AgentServer)))
	} else {
		lines = append(lines, "$servers = @(Get-BEAgentServer)")
	}

	searchArgs := "-Path $p -FromBackupTime $from -ToBackupTime $to"
	if q.Recurse {
		searchArgs += " -Recurse"
	}
	if q.PathIsDirectory {
		searchArgs += " -PathIsDirectory"
	}

	lines = append(lines,
		"$results = @()",
		"foreach ($p in $patterns) {",
		"  foreach ($srv in $servers) {",
		"    try {",
		fmt.Sprintf("      $r = $srv | Search-BECatalog %s", searchArgs),
		"      if ($r) { $results += @($r) }",
		"    } catch { }",
		"  }",
		"}",
		"$items = $results | ForEach-Object { [pscustomobject]@{ name = [string]$_.Name; path = [string]$_.Path; backupSet = [string]$_.BackupSet; agentServer = [string]$_.AgentServer; backupTime = [string]$_.BackupTime } }",
		"[pscustomobject]@{ results = @($items) } | ConvertTo-Json -Depth 4",
	)

	return strings.Join(lines, "\n")
}
