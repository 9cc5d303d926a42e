package jobs

import (
	"log"

	"github.com/mwangikib/tutorspace/services"
)

var orderService *services.OrderService

// Init wires the services the cron jobs run against. Called once from main
// before the scheduler starts.
func Init(orders *services.OrderService) {
	orderService = orders
}

// ReleaseExpiredCheckouts returns timed-out waiting_for_payment orders to
// pending. Each order's transition is independent, so a failure mid-sweep
// loses nothing: the next run picks up whatever is still expired.
func ReleaseExpiredCheckouts() {
	log.Println("Running job: ReleaseExpiredCheckouts...")

	released, err := orderService.RunExpirySweep()
	if err != nil {
		log.Printf("Error sweeping expired checkouts: %v", err)
		return
	}

	if released == 0 {
		return
	}
	log.Printf("Released %d order(s) back to pending.", released)
}
