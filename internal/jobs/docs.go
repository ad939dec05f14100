// Package jobs runs the scheduled background work of the service on
// github.com/robfig/cron/v3.
//
// # Available Jobs
//
// CallbackDeliveryJob polls the durable callback queue every second and hands
// due callbacks to the deliverer. Each tick drains the queue: a full batch is
// followed immediately by the next claim.
//
// # Usage
//
//	job := jobs.NewCallbackDeliveryJob(deliverer, jobs.DefaultCallbackSchedule, batchSize, logger)
//	jobManager := jobs.NewJobManager(job)
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// Errors from a batch are logged and end the tick; callbacks that were claimed
// but not finished come back once their lease expires.
package jobs
