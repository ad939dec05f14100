// Package callbacks delivers queued callbacks to tenant endpoints.
//
// A Deliverer claims due rows from the callback queue, re-loads each subject,
// shapes the body with the tenant's outbound schema and performs one HTTP
// attempt per claimed row. Attempts for the same subject never overlap: the
// subject id is locked through an EntityLocker for the duration of the attempt.
//
// Outcomes:
//   - 2xx: the callback is delivered
//   - transport error or non-2xx: the attempt is counted and the next one is
//     scheduled from the backoff table; after the last attempt the callback is
//     failed and logged at error level
//   - missing callback URL or schema, or a vanished subject: the callback is
//     skipped and logged
//   - lock backend error or a body that cannot be built: counted as a failed
//     attempt like a transport error
//   - subject locked by a concurrent attempt, or the run's context cancelled
//     mid-attempt: the row is released uncounted for a short retry
//   - lease expired before an outcome was saved: the next claim counts the lost
//     attempt, and a row whose attempts are used up comes back failed and is
//     reported without another send
//
// SendNow performs a single attempt for a destination outside the queue.
package callbacks
