/*
 * units.go, part of qmmm.
 *
 * Copyright 2026 the goChem authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package qm

//Conversion factors. qmmm works in nm and kJ/mol, the QM programs in
//Angstrom/Bohr and Hartree or kcal/mol.
const (
	Hartree2KJ       = 2625.4996394798254
	Bohr2Nm          = 0.0529177210903
	Nm2A             = 10.0
	Nm2Bohr          = 1 / Bohr2Nm
	Kcal2KJ          = 4.184
	HartreeBohr2KJNm = Hartree2KJ / Bohr2Nm //gradients
	KcalA2KJNm       = Kcal2KJ * Nm2A       //MOPAC gradients
	EV2KJ            = 96.48533212331
)

var elementSymbols = []string{"X",
	"H", "He", "Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar", "K", "Ca",
	"Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr", "Rb", "Sr", "Y", "Zr",
	"Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn",
	"Sb", "Te", "I", "Xe"}

//Symbol returns the chemical symbol for the atomic number z, or "X" if
//z is out of the table.
func Symbol(z int) string {
	if z < 1 || z >= len(elementSymbols) {
		return "X"
	}
	return elementSymbols[z]
}

//AtomicNumber returns the atomic number for a chemical symbol, or 0 if unknown.
func AtomicNumber(symbol string) int {
	for i, v := range elementSymbols {
		if i > 0 && v == symbol {
			return i
		}
	}
	return 0
}
