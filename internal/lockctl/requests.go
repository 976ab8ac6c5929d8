package lockctl

import "context"

// Status asks the running controller for a snapshot.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	resp, err := c.send(ctx, requestStatus)
	if err != nil {
		return Status{}, err
	}
	return resp.status, nil
}

// RequestStop asks the controller to leave its event loop and shut down.
// It returns once the request is accepted, not once shutdown completes; wait
// on Done for that.
func (c *Controller) RequestStop(ctx context.Context) error {
	_, err := c.send(ctx, requestStop)
	return err
}

// RequestLock runs the same lock sequence as a hotkey press.
func (c *Controller) RequestLock(ctx context.Context) error {
	resp, err := c.send(ctx, requestLock)
	if err != nil {
		return err
	}
	return resp.err
}

func (c *Controller) send(ctx context.Context, kind requestKind) (response, error) {
	if c.State() == StateIdle {
		return response{}, ErrNotRunning
	}
	req := request{kind: kind, reply: make(chan response, 1)}
	select {
	case c.requests <- req:
	case <-c.done:
		return response{}, ErrNotRunning
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp, nil
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}
