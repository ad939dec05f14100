// Package callback models the durable callback queue.
//
// A Callback is created pending in the same unit of work as the transition that
// raised its event. Workers claim due callbacks under a lease, attempt delivery and
// record the outcome. Failed attempts are retried after 10s, 30s, 60s and 120s;
// the fifth failure is permanent.
package callback
