package zcl

// CommandDirection indicates the direction of a cluster command.
type CommandDirection string

const (
	DirectionToServer CommandDirection = "toServer"
	DirectionToClient CommandDirection = "toClient"
)

// CommandDef names a cluster-specific command.
type CommandDef struct {
	ID        uint8            `json:"id" yaml:"id"`
	Name      string           `json:"name" yaml:"name"`
	Direction CommandDirection `json:"direction" yaml:"direction"`
}

// ClusterDef names a ZCL cluster and its commands.
type ClusterDef struct {
	ID       uint16       `json:"id" yaml:"id"`
	Name     string       `json:"name" yaml:"name"`
	Commands []CommandDef `json:"commands,omitempty" yaml:"commands"`
}

// FindCommand looks up a command by ID and direction.
func (c *ClusterDef) FindCommand(id uint8, dir CommandDirection) *CommandDef {
	for i := range c.Commands {
		if c.Commands[i].ID == id && c.Commands[i].Direction == dir {
			return &c.Commands[i]
		}
	}
	return nil
}

// DeepCopy returns a deep copy of the cluster definition.
func (c *ClusterDef) DeepCopy() *ClusterDef {
	cp := *c
	if c.Commands != nil {
		cp.Commands = make([]CommandDef, len(c.Commands))
		copy(cp.Commands, c.Commands)
	}
	return &cp
}

// Merge adds the commands of other that c lacks. A non-empty name replaces c's.
func (c *ClusterDef) Merge(other *ClusterDef) {
	if other.Name != "" {
		c.Name = other.Name
	}
	for _, cmd := range other.Commands {
		if c.FindCommand(cmd.ID, cmd.Direction) == nil {
			c.Commands = append(c.Commands, cmd)
		}
	}
}

// Direction returns the direction a command travels in.
func (c *Command) Direction() CommandDirection {
	if c.FromServer() {
		return DirectionToClient
	}
	return DirectionToServer
}
