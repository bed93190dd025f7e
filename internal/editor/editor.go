// Package editor defines the narrow surface through which the agent
// talks to whatever is hosting it. A full editor integration would
// bridge these calls to its UI; the headless implementation used by
// the CLI answers them from the filesystem and the log.
package editor

import "context"

// Editor is the host collaborator. Implementations must be safe for
// sequential use within one agent turn; the agent never calls them
// concurrently.
type Editor interface {
	// WorkspaceRoot returns the absolute path of the open project.
	WorkspaceRoot() string
	// Selection returns the currently selected text, or "" when
	// nothing is selected.
	Selection() string
	// ActiveFile returns the path and full text of the focused file.
	// Both are empty when no file is open.
	ActiveFile() (path, content string)

	// Notify surfaces a progress or status message to the user.
	Notify(message string)
	// NotifyError surfaces a failure to the user.
	NotifyError(message string)

	// ShowDiff presents a unified diff of a pending change.
	ShowDiff(path, diff string)
	// ApplyEdit replaces the full content of path, creating the file
	// if it does not exist.
	ApplyEdit(ctx context.Context, path, content string) error
}
