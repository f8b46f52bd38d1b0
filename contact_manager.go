package rigid2d

import (
	"github.com/ByteArena/rigid2d/collision"
	"github.com/ByteArena/rigid2d/internal/arena"
)

// contactManager creates contacts from broad-phase pairs and keeps them up
// to date. It shares the world's arenas and owns the contact arena.
type contactManager struct {
	broadPhase *collision.BroadPhase

	bodies   *arena.Arena[*Body]
	fixtures *arena.Arena[*Fixture]
	contacts *arena.Arena[*Contact]
	joints   *arena.Arena[Joint]

	filter   ContactFilter
	listener ContactListener
}

func (cm *contactManager) body(id BodyID) *Body {
	b, _ := cm.bodies.Get(arena.Handle(id))
	return b
}

func (cm *contactManager) fixture(id FixtureID) *Fixture {
	f, _ := cm.fixtures.Get(arena.Handle(id))
	return f
}

func (cm *contactManager) contact(id ContactID) *Contact {
	c, _ := cm.contacts.Get(arena.Handle(id))
	return c
}

func (cm *contactManager) joint(id JointID) Joint {
	j, _ := cm.joints.Get(arena.Handle(id))
	return j
}

// shouldCollide reports whether contacts may exist between two bodies: at
// least one must be dynamic and no joint between them may forbid it.
func (cm *contactManager) shouldCollide(bA, bB *Body) bool {
	if bA.typ != DynamicBody && bB.typ != DynamicBody {
		return false
	}
	for jid := bB.jointList; !jid.IsNil(); {
		j := cm.joint(jid)
		e := j.base().edge(bB.id)
		if e.other == bA.id && !j.CollideConnected() {
			return false
		}
		jid = e.next
	}
	return true
}

// addPair is the broad-phase callback for a new proxy overlap.
func (cm *contactManager) addPair(userDataA, userDataB any) {
	keyA := userDataA.(proxyKey)
	keyB := userDataB.(proxyKey)

	fA := cm.fixture(keyA.fixture)
	fB := cm.fixture(keyB.fixture)
	if fA == nil || fB == nil || fA.body == fB.body {
		return
	}

	bA := cm.body(fA.body)
	bB := cm.body(fB.body)

	// does a contact already exist?
	for cid := bB.contactList; !cid.IsNil(); {
		c := cm.contact(cid)
		e := c.edge(bB.id)
		if e.other == bA.id {
			if c.fixtureA == fA.id && c.fixtureB == fB.id && c.indexA == keyA.child && c.indexB == keyB.child {
				return
			}
			if c.fixtureA == fB.id && c.fixtureB == fA.id && c.indexA == keyB.child && c.indexB == keyA.child {
				return
			}
		}
		cid = e.next
	}

	if !cm.shouldCollide(bB, bA) {
		return
	}
	if !cm.filter.ShouldCollide(fA, fB) {
		return
	}

	c := newContact(fA, keyA.child, fB, keyB.child)
	if c == nil {
		return
	}
	c.id = ContactID(cm.contacts.Insert(c))

	// creation may have swapped the fixtures
	bA = cm.body(c.bodyA)
	bB = cm.body(c.bodyB)

	cm.link(bA, c, &c.nodeA)
	cm.link(bB, c, &c.nodeB)

	if !fA.isSensor && !fB.isSensor {
		bA.SetAwake(true)
		bB.SetAwake(true)
	}
}

// link pushes c onto the front of b's contact list.
func (cm *contactManager) link(b *Body, c *Contact, e *contactEdge) {
	e.other = c.other(b.id)
	e.prev = ContactID{}
	e.next = b.contactList
	if !b.contactList.IsNil() {
		cm.contact(b.contactList).edge(b.id).prev = c.id
	}
	b.contactList = c.id
}

func (cm *contactManager) unlink(b *Body, e *contactEdge) {
	if !e.prev.IsNil() {
		cm.contact(e.prev).edge(b.id).next = e.next
	} else {
		b.contactList = e.next
	}
	if !e.next.IsNil() {
		cm.contact(e.next).edge(b.id).prev = e.prev
	}
	e.prev, e.next = ContactID{}, ContactID{}
}

// destroy unlinks c from both bodies and frees it. Bodies that were pushed
// apart by a real manifold are woken.
func (cm *contactManager) destroy(c *Contact) {
	fA := cm.fixture(c.fixtureA)
	fB := cm.fixture(c.fixtureB)
	bA := cm.body(c.bodyA)
	bB := cm.body(c.bodyB)

	if cm.listener != nil && c.IsTouching() {
		cm.listener.EndContact(c)
	}

	if c.manifold.PointCount > 0 && !fA.isSensor && !fB.isSensor {
		bA.SetAwake(true)
		bB.SetAwake(true)
	}

	cm.unlink(bA, &c.nodeA)
	cm.unlink(bB, &c.nodeB)

	c.flags = 0
	cm.contacts.Remove(arena.Handle(c.id))
}

// destroyBodyContacts destroys every contact on b.
func (cm *contactManager) destroyBodyContacts(b *Body) {
	for !b.contactList.IsNil() {
		cm.destroy(cm.contact(b.contactList))
	}
}

// destroyFixtureContacts destroys every contact on b that references f.
func (cm *contactManager) destroyFixtureContacts(b *Body, f *Fixture) {
	for cid := b.contactList; !cid.IsNil(); {
		c := cm.contact(cid)
		cid = c.edge(b.id).next
		if c.fixtureA == f.id || c.fixtureB == f.id {
			cm.destroy(c)
		}
	}
}

// flagContacts marks the contacts of b for re-filtering. If other is not
// nil only contacts against other are flagged.
func (cm *contactManager) flagContacts(b *Body, other BodyID, fixture FixtureID) {
	for cid := b.contactList; !cid.IsNil(); {
		c := cm.contact(cid)
		e := c.edge(b.id)
		switch {
		case !other.IsNil() && e.other != other:
		case !fixture.IsNil() && c.fixtureA != fixture && c.fixtureB != fixture:
		default:
			c.FlagForFiltering()
		}
		cid = e.next
	}
}

// collide runs the narrow phase over every contact, destroying those whose
// proxies stopped overlapping or that no longer pass filtering.
func (cm *contactManager) collide() {
	cm.contacts.Each(func(_ arena.Handle, c *Contact) bool {
		fA := cm.fixture(c.fixtureA)
		fB := cm.fixture(c.fixtureB)
		bA := cm.body(c.bodyA)
		bB := cm.body(c.bodyB)

		if c.flags.Has(ContactFilterFlag) {
			if !cm.shouldCollide(bB, bA) || !cm.filter.ShouldCollide(fA, fB) {
				cm.destroy(c)
				return true
			}
			c.flags.Set(ContactFilterFlag, false)
		}

		activeA := bA.IsAwake() && bA.typ != StaticBody
		activeB := bB.IsAwake() && bB.typ != StaticBody

		// at least one body must be awake and dynamic or kinematic
		if !activeA && !activeB {
			return true
		}

		proxyA := fA.proxies[c.indexA].proxyID
		proxyB := fB.proxies[c.indexB].proxyID
		if !cm.broadPhase.TestOverlap(proxyA, proxyB) {
			cm.destroy(c)
			return true
		}

		c.update(fA, fB, bA, bB, cm.listener)
		return true
	})
}

func (cm *contactManager) findNewContacts() {
	cm.broadPhase.UpdatePairs(cm.addPair)
}
