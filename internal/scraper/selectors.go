package scraper

// Instagram DOM selectors. The login form and the page-source viewer markup are
// the only two shapes this scraper depends on.
const (
	UsernameField = `input[name="username"]`
	PasswordField = `input[name="password"]`

	// Chrome's view-source page renders each line of the body in its own cell.
	ContentCell = `td.line-content`
	// Raw JSON bodies opened without view-source are wrapped in a <pre>.
	RawBody = `pre`
)
