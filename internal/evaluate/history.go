package evaluate

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/spboyer/bagcheck/internal/gitrepo"
)

// checkHistory cross-references the commit log with the identity file. It is
// skipped when the identity couldn't be read.
func (s *Sequence) checkHistory(ctx context.Context, st *State) (Signal, error) {
	limit := s.cfg.History.MaxCounted
	minLen := s.cfg.History.MinSubjectLength
	commits, err := st.add(IDCommits, "Repo contains commits made by you", float64(limit*pointsPerCommit))
	if err != nil {
		return Halt, err
	}
	msgs, err := st.add(IDMessages, "Those commits have meaningful commit messages", float64(limit*pointsPerMessage))
	if err != nil {
		return Halt, err
	}

	if st.IdentityFailed || st.Identity == nil {
		st.Hint("Commit history not checked due to errors in %s.", s.cfg.Paths.Identity)
		return Continue, nil
	}

	st.Hint("")
	st.Hint("Git Commit Check")
	st.Hint("Your name in %s is %s", s.cfg.Paths.Identity, st.Identity.Name)
	st.Hint("Email address: %s", st.Identity.Email)

	log, err := s.inspector.CommitLog(ctx)
	if err != nil {
		commits.FlagException()
		msgs.FlagException()
		st.Hint("ERROR: reading the git log: %v", err)
		return Continue, nil
	}
	st.Hint("This is the full git log.")
	for _, c := range log {
		st.Hint("%s", strings.Join([]string{c.Hash, c.AuthorName, c.AuthorEmail, c.Subject}, gitrepo.LogDelimiter))
	}

	authored, described := CountCommits(log, st.Identity.Name, st.Identity.Email, minLen)
	if err := commits.Grade(float64(min(limit, authored) * pointsPerCommit)); err != nil {
		return Halt, err
	}
	if err := msgs.Grade(float64(min(limit, described) * pointsPerMessage)); err != nil {
		return Halt, err
	}
	return Continue, nil
}

// CountCommits returns the number of commits authored by name and email
// (compared case-insensitively) and, among those, the number whose subject
// has at least minLen characters.
func CountCommits(log []gitrepo.Commit, name, email string, minLen int) (authored, described int) {
	for _, c := range log {
		if !strings.EqualFold(c.AuthorName, name) || !strings.EqualFold(c.AuthorEmail, email) {
			continue
		}
		authored++
		if utf8.RuneCountInString(c.Subject) >= minLen {
			described++
		}
	}
	return authored, described
}
