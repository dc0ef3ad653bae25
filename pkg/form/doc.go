// Package form holds the admission form state controller. A Session owns the
// values, local files, validation messages and wizard step of one applicant,
// and drives the program → personal → education flow against a Backend:
// loading the configuration, reconciling an existing application, saving the
// personal group before the education step and submitting the whole form.
//
// Sessions serialize their own operations. A save or load in flight makes a
// second Next, Submit or Load fail with ErrBusy instead of queueing behind it.
package form
